package identity

import "errors"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	ErrNotFound     = errors.New("identity: not found")
	ErrConflict     = errors.New("identity: already exists")
	ErrCodeMismatch = errors.New("identity: verification code mismatch")
	ErrCodeExpired  = errors.New("identity: verification code expired")
)
