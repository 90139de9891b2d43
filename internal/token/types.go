package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators embedded in the token_type claim.
const (
	TypeAccess  = "ACCESS"
	TypeRefresh = "REFRESH"
)

var (
	ErrMalformed    = errors.New("token: malformed")
	ErrExpired      = errors.New("token: expired")
	ErrRevoked      = errors.New("token: revoked")
	ErrTypeMismatch = errors.New("token: unexpected token type")
	ErrNotFound     = errors.New("token: not found")
)

// AccessClaims is the signed payload of an access token. Access tokens are
// never persisted; the principal is rebuilt from these claims per request.
type AccessClaims struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the signed payload of a refresh token. The jti
// (RegisteredClaims.ID) correlates the token with its ledger record.
type RefreshClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshToken is the durable ledger record backing one issued refresh
// token. Superseded records stay in the ledger marked revoked; rotation
// never deletes.
type RefreshToken struct {
	ID         string
	JTI        string
	UserID     string
	Supersedes string // jti of the rotated-out predecessor, if any
	Revoked    bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Pair bundles a freshly issued access/refresh token set.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
