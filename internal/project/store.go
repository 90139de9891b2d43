package project

import "context"

// ListQuery narrows a project listing. A nil IDs slice means no id
// restriction; Statuses must always be set by the caller.
type ListQuery struct {
	IDs      []string
	Statuses []Status
}

// Store is the persistence boundary for projects.
type Store interface {
	// Create inserts a new project.
	Create(ctx context.Context, p *Project) error
	// Find returns a project by id or ErrNotFound.
	Find(ctx context.Context, id string) (*Project, error)
	// Update rewrites an existing project row or returns ErrNotFound.
	Update(ctx context.Context, p *Project) error
	// List returns projects matching q, newest first.
	List(ctx context.Context, q ListQuery) ([]*Project, error)
}
