package membership

import "context"

// Store describes persistence operations for membership records. The
// (user_id, project_id) pair is unique; Create surfaces a violation as
// ErrConflict so concurrent invites have exactly one winner.
type Store interface {
	Create(ctx context.Context, m *Membership) error
	Find(ctx context.Context, id string) (*Membership, error)
	FindByUserAndProject(ctx context.Context, userID, projectID string) (*Membership, error)
	Update(ctx context.Context, m *Membership) error
	ListByProject(ctx context.Context, projectID string) ([]*Membership, error)
	ListActiveByUser(ctx context.Context, userID string, roles []Role) ([]*Membership, error)
}
