package token

import "context"

// RefreshStore manages the refresh token ledger.
type RefreshStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	FindByJTI(ctx context.Context, jti string) (*RefreshToken, error)
	// Revoke marks the record revoked only if it is not revoked yet; a
	// record already revoked yields ErrRevoked. This conditional update is
	// the serialization point that gives concurrent rotations exactly one
	// winner.
	Revoke(ctx context.Context, jti string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}
