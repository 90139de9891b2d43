package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"collabhub.org/internal/membership"
)

type pgMemberships Store

const membershipColumns = `id, user_id, project_id, role, status, joined_at, created_at, updated_at`

func (s *pgMemberships) Create(ctx context.Context, m *membership.Membership) error {
	_, err := s.db.ExecContext(ctx, `
		insert into memberships (id, user_id, project_id, role, status, joined_at, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.UserID, m.ProjectID, m.Role, m.Status, nullIfZero(m.JoinedAt), m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: membership already exists for this user and project", membership.ErrConflict)
		}
		return err
	}
	return nil
}

func scanMembership(scan func(...any) error) (*membership.Membership, error) {
	var (
		m       membership.Membership
		joined  sql.NullTime
		updated sql.NullTime
	)
	err := scan(&m.ID, &m.UserID, &m.ProjectID, &m.Role, &m.Status, &joined, &m.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, membership.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if joined.Valid {
		m.JoinedAt = joined.Time
	}
	if updated.Valid {
		m.UpdatedAt = updated.Time
	}
	return &m, nil
}

func (s *pgMemberships) Find(ctx context.Context, id string) (*membership.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+membershipColumns+` from memberships where id = $1`, id)
	return scanMembership(row.Scan)
}

func (s *pgMemberships) FindByUserAndProject(ctx context.Context, userID, projectID string) (*membership.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+membershipColumns+` from memberships where user_id = $1 and project_id = $2`,
		userID, projectID)
	return scanMembership(row.Scan)
}

func (s *pgMemberships) Update(ctx context.Context, m *membership.Membership) error {
	res, err := s.db.ExecContext(ctx, `
		update memberships
		set role = $2, status = $3, joined_at = $4, updated_at = now()
		where id = $1
	`, m.ID, m.Role, m.Status, nullIfZero(m.JoinedAt))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return membership.ErrNotFound
	}
	return nil
}

func (s *pgMemberships) ListByProject(ctx context.Context, projectID string) ([]*membership.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+membershipColumns+` from memberships where project_id = $1 order by created_at`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func (s *pgMemberships) ListActiveByUser(ctx context.Context, userID string, roles []membership.Role) ([]*membership.Membership, error) {
	query := `select ` + membershipColumns + ` from memberships where user_id = $1 and status = $2`
	args := []any{userID, membership.StatusActive}
	if len(roles) > 0 {
		marks := make([]string, len(roles))
		for i, r := range roles {
			args = append(args, r)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		query += ` and role in (` + strings.Join(marks, ", ") + `)`
	}
	query += ` order by created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemberships(rows)
}

func collectMemberships(rows *sql.Rows) ([]*membership.Membership, error) {
	var out []*membership.Membership
	for rows.Next() {
		m, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
