package identity

import "context"

// Store describes persistence operations required by the identity subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Identities(ctx context.Context) AuthIdentityStore
	Codes(ctx context.Context) VerificationCodeStore
}

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	SetEmailVerified(ctx context.Context, id string) error
}

// AuthIdentityStore manages authentication methods attached to users.
type AuthIdentityStore interface {
	Create(ctx context.Context, ident *AuthIdentity) error
	FindLocal(ctx context.Context, providerUserID string) (*AuthIdentity, error)
}

// VerificationCodeStore manages single-use verification codes.
type VerificationCodeStore interface {
	Create(ctx context.Context, code *VerificationCode) error
	LatestUnused(ctx context.Context, userID string, purpose Purpose) (*VerificationCode, error)
	MarkUsed(ctx context.Context, id string) error
}
