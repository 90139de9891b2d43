package identity

import "time"

// Role is the principal's global role. Project-level roles live in the
// membership package.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Provider identifies how an identity authenticates.
type Provider string

const (
	ProviderLocal Provider = "LOCAL"
)

// Purpose classifies verification codes.
type Purpose string

const (
	PurposeEmail Purpose = "EMAIL"
)

// User is the durable account record.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Username      string
	EmailVerified bool
	Role          Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuthIdentity is one authentication method attached to a user. For the
// LOCAL provider ProviderUserID is the username and PasswordHash is set.
// Unique per (provider, provider_user_id).
type AuthIdentity struct {
	ID             string
	Provider       Provider
	ProviderUserID string
	PasswordHash   string
	UserID         string
	CreatedAt      time.Time
}

// VerificationCode is a single-use, time-bound 6-digit code.
type VerificationCode struct {
	ID        string
	Code      string
	Purpose   Purpose
	UserID    string
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Principal is the authenticated identity attached to a request. It is a
// value rebuilt from token claims (or a durable lookup) on every call and
// never mutated in place.
type Principal struct {
	ID            string
	Username      string
	Email         string
	Role          Role
	EmailVerified bool
}

// IsAdmin reports whether the principal holds the global ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// PrincipalOf builds a Principal from a durable user record.
func PrincipalOf(u *User) Principal {
	return Principal{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
	}
}
