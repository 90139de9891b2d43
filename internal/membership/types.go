package membership

import (
	"errors"
	"time"
)

// Role is a member's role within one project. Global roles (USER, ADMIN)
// live in the identity package.
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// CanManageMembers reports whether the role may invite and manage members.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleManager
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleMember:
		return true
	}
	return false
}

// Status is a membership lifecycle state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusRejected Status = "REJECTED"
	StatusLeft     Status = "LEFT"
	StatusDeleted  Status = "DELETED"
)

// IsTerminal reports whether no update-path transition may leave the
// status. Re-invitation is the only way back to PENDING.
func (s Status) IsTerminal() bool {
	return s == StatusLeft || s == StatusDeleted
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRejected, StatusLeft, StatusDeleted:
		return true
	}
	return false
}

// Membership is the join record between a user and a project. At most one
// row exists per (user, project) pair; lifecycle changes update it in
// place.
type Membership struct {
	ID        string
	UserID    string
	ProjectID string
	Role      Role
	Status    Status
	JoinedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	ErrNotFound          = errors.New("membership: not found")
	ErrConflict          = errors.New("membership: already exists")
	ErrInvalidTransition = errors.New("membership: invalid state transition")
	ErrCannotAssignOwner = errors.New("membership: cannot appoint another owner")
	ErrOwnerCannotLeave  = errors.New("membership: owners cannot leave their project")
)
