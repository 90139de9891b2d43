// Package project holds the project surface and the visible-status policy
// used when listing projects.
package project

import (
	"errors"
	"fmt"
	"time"

	"collabhub.org/internal/authz"
)

// Status is a project lifecycle status.
type Status string

const (
	StatusArchived   Status = "ARCHIVED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusDeleted    Status = "DELETED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusArchived, StatusInProgress, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// StatusFilter is a requested listing filter: any Status, or FilterAll.
type StatusFilter string

// FilterAll expands to every status the caller is allowed to see.
const FilterAll StatusFilter = "ALL"

var (
	ErrNotFound          = errors.New("project: not found")
	ErrInvalidStatus     = errors.New("project: invalid status")
	ErrInvalidTransition = errors.New("project: invalid state transition")
)

// Project is a collaboration project.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// ResolveVisibleStatuses turns the requested filters into the concrete status
// set a listing may return. No filters defaults to {IN_PROGRESS, COMPLETED}.
// FilterAll expands to every status for admins and every non-deleted status
// otherwise. A non-admin asking for DELETED is denied outright.
func ResolveVisibleStatuses(isAdmin bool, filters []StatusFilter) ([]Status, error) {
	if len(filters) == 0 {
		return []Status{StatusInProgress, StatusCompleted}, nil
	}
	seen := make(map[Status]bool, len(filters))
	var out []Status
	add := func(s Status) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, f := range filters {
		if f == FilterAll {
			add(StatusArchived)
			add(StatusInProgress)
			add(StatusCompleted)
			if isAdmin {
				add(StatusDeleted)
			}
			continue
		}
		s := Status(f)
		if !s.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f)
		}
		if s == StatusDeleted && !isAdmin {
			return nil, fmt.Errorf("%w: deleted projects are not listable", authz.ErrDenied)
		}
		add(s)
	}
	return out, nil
}
