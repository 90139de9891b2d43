package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collabhub.org/internal/identity"
	"collabhub.org/internal/ids"
	"collabhub.org/internal/membership"
)

// Scope selects which of the caller's projects a listing covers.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeOwned  Scope = "owned"
	ScopeMember Scope = "member"
)

// ErrInvalidScope is returned for an unknown listing scope.
var ErrInvalidScope = errors.New("project: invalid scope")

// MembershipDirectory is the slice of the membership store the project
// service needs.
type MembershipDirectory interface {
	Create(ctx context.Context, m *membership.Membership) error
	FindByUserAndProject(ctx context.Context, userID, projectID string) (*membership.Membership, error)
	ListActiveByUser(ctx context.Context, userID string, roles []membership.Role) ([]*membership.Membership, error)
}

// Service implements project operations.
type Service struct {
	store       Store
	memberships MembershipDirectory
	now         func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) { s.now = fn }
}

// NewService returns a project Service over the given stores.
func NewService(store Store, memberships MembershipDirectory, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("project: store is required")
	}
	if memberships == nil {
		return nil, errors.New("project: membership directory is required")
	}
	s := &Service{store: store, memberships: memberships, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create inserts a new IN_PROGRESS project and makes the creator its ACTIVE
// OWNER in one go.
func (s *Service) Create(ctx context.Context, ownerID, name, description string) (*Project, error) {
	now := s.now().UTC()
	p := &Project{
		ID:          ids.New(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Status:      StatusInProgress,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	m := &membership.Membership{
		ID:        ids.New(),
		UserID:    ownerID,
		ProjectID: p.ID,
		Role:      membership.RoleOwner,
		Status:    membership.StatusActive,
		JoinedAt:  now,
		CreatedAt: now,
	}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("project: creating owner membership: %w", err)
	}
	return p, nil
}

// List returns the projects visible to p under the given scope and status
// filters, newest first.
func (s *Service) List(ctx context.Context, p identity.Principal, scope Scope, filters []StatusFilter) ([]*Project, error) {
	statuses, err := ResolveVisibleStatuses(p.IsAdmin(), filters)
	if err != nil {
		return nil, err
	}
	var roles []membership.Role
	switch scope {
	case ScopeAll, "":
		if p.IsAdmin() {
			return s.store.List(ctx, ListQuery{Statuses: statuses})
		}
	case ScopeOwned:
		roles = []membership.Role{membership.RoleOwner}
	case ScopeMember:
		roles = []membership.Role{membership.RoleManager, membership.RoleMember}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	ms, err := s.memberships.ListActiveByUser(ctx, p.ID, roles)
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ProjectID)
	}
	return s.store.List(ctx, ListQuery{IDs: ids, Statuses: statuses})
}

// Details is a project together with the caller's standing in it. Role is
// empty when the caller holds no active membership, which only admins reach.
type Details struct {
	Project  *Project        `json:"project"`
	Role     membership.Role `json:"role,omitempty"`
	JoinedAt time.Time       `json:"joined_at,omitzero"`
}

// Details returns one project. Non-admins never see DELETED projects; the
// row simply does not exist for them.
func (s *Service) Details(ctx context.Context, p identity.Principal, projectID string) (*Details, error) {
	prj, err := s.store.Find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if prj.Status == StatusDeleted && !p.IsAdmin() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	d := &Details{Project: prj}
	m, err := s.memberships.FindByUserAndProject(ctx, p.ID, projectID)
	switch {
	case err == nil:
		if m.Status == membership.StatusActive {
			d.Role = m.Role
			d.JoinedAt = m.JoinedAt
		}
	case errors.Is(err, membership.ErrNotFound):
		// admins may view projects they are not part of
	default:
		return nil, err
	}
	return d, nil
}

// Update mutates a project's fields. Nil fields are left alone.
type Update struct {
	Name        *string
	Description *string
	Status      *Status
}

// Update applies u to a project. DELETED projects are immutable through this
// path, and an ARCHIVED project only accepts updates that also change its
// status.
func (s *Service) Update(ctx context.Context, projectID string, u Update) (*Project, error) {
	prj, err := s.store.Find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if prj.Status == StatusDeleted {
		return nil, fmt.Errorf("%w: deleted project is immutable", ErrInvalidTransition)
	}
	if prj.Status == StatusArchived && u.Status == nil {
		return nil, fmt.Errorf("%w: archived project must be unarchived first", ErrInvalidTransition)
	}
	if u.Status != nil && !u.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
	}
	if u.Name != nil {
		prj.Name = *u.Name
	}
	if u.Description != nil {
		prj.Description = *u.Description
	}
	if u.Status != nil {
		prj.Status = *u.Status
	}
	prj.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, prj); err != nil {
		return nil, err
	}
	return prj, nil
}
