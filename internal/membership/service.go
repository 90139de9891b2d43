package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collabhub.org/internal/ids"
)

// Service drives the membership lifecycle. Authorization runs before these
// operations (see the authz package); the invariants are re-checked here so
// no caller can bypass them.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs Service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("membership: store is required")
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// Invite creates a PENDING membership for the user, or resurrects a
// REJECTED/LEFT/DELETED row back to PENDING. A live (PENDING or ACTIVE)
// membership is a conflict.
func (s *Service) Invite(ctx context.Context, projectID, userID string) (*Membership, error) {
	existing, err := s.store.FindByUserAndProject(ctx, userID, projectID)
	switch {
	case err == nil:
		if existing.Status == StatusActive || existing.Status == StatusPending {
			return nil, fmt.Errorf("%w: an active or pending membership already exists", ErrConflict)
		}
		existing.Status = StatusPending
		if err := s.store.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, ErrNotFound):
		// fall through to create
	default:
		return nil, err
	}

	m := &Membership{
		ID:        ids.New(),
		UserID:    userID,
		ProjectID: projectID,
		Role:      RoleMember,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}
	// The store's uniqueness constraint decides concurrent invites.
	if err := s.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Respond resolves a pending invitation: accept moves PENDING to ACTIVE and
// stamps JoinedAt, reject moves PENDING to REJECTED.
func (s *Service) Respond(ctx context.Context, membershipID string, accept bool) (*Membership, error) {
	m, err := s.store.Find(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPending {
		return nil, fmt.Errorf("%w: cannot respond to a %s membership", ErrInvalidTransition, m.Status)
	}
	if accept {
		m.Status = StatusActive
		m.JoinedAt = s.now().UTC()
	} else {
		m.Status = StatusRejected
	}
	if err := s.store.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Leave moves an ACTIVE membership to LEFT. Owners must transfer ownership
// first; this path is closed to them.
func (s *Service) Leave(ctx context.Context, membershipID string) error {
	m, err := s.store.Find(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Role == RoleOwner {
		return ErrOwnerCannotLeave
	}
	if m.Status != StatusActive {
		return fmt.Errorf("%w: cannot leave a %s membership", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusLeft
	return s.store.Update(ctx, m)
}

// ChangeRole updates the member's project role. Terminal rows are
// immutable, and ownership is never assigned through this path.
func (s *Service) ChangeRole(ctx context.Context, membershipID string, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidTransition, role)
	}
	if role == RoleOwner {
		return ErrCannotAssignOwner
	}
	m, err := s.store.Find(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Status.IsTerminal() {
		return fmt.Errorf("%w: membership is %s", ErrInvalidTransition, m.Status)
	}
	m.Role = role
	return s.store.Update(ctx, m)
}

// Remove moves a non-terminal membership to DELETED (or LEFT, per caller
// intent). Terminal rows only return to the lifecycle via re-invitation.
func (s *Service) Remove(ctx context.Context, membershipID string, to Status) error {
	if to != StatusDeleted && to != StatusLeft {
		return fmt.Errorf("%w: removal targets LEFT or DELETED, not %q", ErrInvalidTransition, to)
	}
	m, err := s.store.Find(ctx, membershipID)
	if err != nil {
		return err
	}
	if m.Status.IsTerminal() {
		return fmt.Errorf("%w: membership is already %s", ErrInvalidTransition, m.Status)
	}
	m.Status = to
	return s.store.Update(ctx, m)
}

// Get loads one membership record.
func (s *Service) Get(ctx context.Context, membershipID string) (*Membership, error) {
	return s.store.Find(ctx, membershipID)
}

// ListProjectMembers returns every membership row of a project.
func (s *Service) ListProjectMembers(ctx context.Context, projectID string) ([]*Membership, error) {
	return s.store.ListByProject(ctx, projectID)
}
