package authz

import (
	"context"
	"errors"
	"fmt"

	"collabhub.org/internal/identity"
	"collabhub.org/internal/membership"
)

var (
	// ErrDenied is returned when the principal may not perform the action.
	ErrDenied = errors.New("authz: denied")
	// ErrNotFound is returned when a decision references a membership that
	// does not exist.
	ErrNotFound = errors.New("authz: not found")
)

// MembershipReader is the slice of the membership store the engine consults.
type MembershipReader interface {
	Find(ctx context.Context, id string) (*membership.Membership, error)
	FindByUserAndProject(ctx context.Context, userID, projectID string) (*membership.Membership, error)
}

// Engine evaluates Decisions against membership records and the principal's
// global role. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	memberships MembershipReader
}

// NewEngine returns an Engine backed by the given membership reader.
func NewEngine(memberships MembershipReader) (*Engine, error) {
	if memberships == nil {
		return nil, errors.New("authz: membership reader is required")
	}
	return &Engine{memberships: memberships}, nil
}

// Authorize returns nil if p may perform d, ErrDenied or ErrNotFound
// otherwise. An ADMIN principal bypasses project-level checks but not
// invariants that hold regardless of actor, such as an OWNER never leaving
// through the leave path.
func (e *Engine) Authorize(ctx context.Context, p identity.Principal, d Decision) error {
	switch d := d.(type) {
	case Invite:
		if p.IsAdmin() {
			return nil
		}
		return e.requireProjectRole(ctx, p.ID, d.ProjectID, membership.RoleOwner, membership.RoleManager)
	case ManageMembers:
		if p.IsAdmin() {
			return nil
		}
		return e.requireProjectRole(ctx, p.ID, d.ProjectID, membership.RoleOwner)
	case RespondToInvite:
		m, err := e.find(ctx, d.MembershipID)
		if err != nil {
			return err
		}
		if m.UserID != p.ID {
			return fmt.Errorf("%w: only the invited user may respond", ErrDenied)
		}
		return nil
	case Leave:
		m, err := e.find(ctx, d.MembershipID)
		if err != nil {
			return err
		}
		if m.Role == membership.RoleOwner {
			return fmt.Errorf("%w: an owner cannot leave, transfer ownership first", ErrDenied)
		}
		if m.UserID != p.ID {
			return fmt.Errorf("%w: only the member may leave", ErrDenied)
		}
		return nil
	case UpdateMembership:
		m, err := e.find(ctx, d.MembershipID)
		if err != nil {
			return err
		}
		if m.Status.IsTerminal() {
			return fmt.Errorf("%w: membership is in a terminal state", ErrDenied)
		}
		if p.IsAdmin() {
			return nil
		}
		actor, err := e.memberships.FindByUserAndProject(ctx, p.ID, m.ProjectID)
		if err != nil {
			if errors.Is(err, membership.ErrNotFound) {
				return fmt.Errorf("%w: no membership in this project", ErrDenied)
			}
			return err
		}
		if actor.Status != membership.StatusActive && actor.Status != membership.StatusPending {
			return fmt.Errorf("%w: no live membership in this project", ErrDenied)
		}
		return nil
	case ViewProject:
		if p.IsAdmin() {
			return nil
		}
		return e.requireProjectRole(ctx, p.ID, d.ProjectID,
			membership.RoleOwner, membership.RoleManager, membership.RoleMember)
	default:
		return fmt.Errorf("%w: unknown decision %T", ErrDenied, d)
	}
}

func (e *Engine) find(ctx context.Context, id string) (*membership.Membership, error) {
	m, err := e.memberships.Find(ctx, id)
	if err != nil {
		if errors.Is(err, membership.ErrNotFound) {
			return nil, fmt.Errorf("%w: membership %s", ErrNotFound, id)
		}
		return nil, err
	}
	return m, nil
}

// requireProjectRole checks that the user holds an ACTIVE membership with one
// of the given roles in the project.
func (e *Engine) requireProjectRole(ctx context.Context, userID, projectID string, roles ...membership.Role) error {
	m, err := e.memberships.FindByUserAndProject(ctx, userID, projectID)
	if err != nil {
		if errors.Is(err, membership.ErrNotFound) {
			return fmt.Errorf("%w: no membership in this project", ErrDenied)
		}
		return err
	}
	if m.Status != membership.StatusActive {
		return fmt.Errorf("%w: membership is not active", ErrDenied)
	}
	for _, r := range roles {
		if m.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s is not sufficient", ErrDenied, m.Role)
}
