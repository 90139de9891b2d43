package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"collabhub.org/internal/project"
)

type pgProjects Store

const projectColumns = `id, name, description, owner_id, status, created_at, updated_at`

func (s *pgProjects) Create(ctx context.Context, p *project.Project) error {
	_, err := s.db.ExecContext(ctx, `
		insert into projects (id, name, description, owner_id, status, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.OwnerID, p.Status, p.CreatedAt)
	return err
}

func scanProject(scan func(...any) error) (*project.Project, error) {
	var (
		p       project.Project
		desc    sql.NullString
		updated sql.NullTime
	)
	err := scan(&p.ID, &p.Name, &desc, &p.OwnerID, &p.Status, &p.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, project.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		p.Description = desc.String
	}
	if updated.Valid {
		p.UpdatedAt = updated.Time
	}
	return &p, nil
}

func (s *pgProjects) Find(ctx context.Context, id string) (*project.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+projectColumns+` from projects where id = $1`, id)
	return scanProject(row.Scan)
}

func (s *pgProjects) Update(ctx context.Context, p *project.Project) error {
	res, err := s.db.ExecContext(ctx, `
		update projects
		set name = $2, description = $3, status = $4, updated_at = now()
		where id = $1
	`, p.ID, p.Name, nullIfEmpty(p.Description), p.Status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (s *pgProjects) List(ctx context.Context, q project.ListQuery) ([]*project.Project, error) {
	var (
		conds []string
		args  []any
	)
	if len(q.Statuses) > 0 {
		marks := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			args = append(args, st)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, `status in (`+strings.Join(marks, ", ")+`)`)
	}
	if q.IDs != nil {
		if len(q.IDs) == 0 {
			return nil, nil
		}
		marks := make([]string, len(q.IDs))
		for i, id := range q.IDs {
			args = append(args, id)
			marks[i] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, `id in (`+strings.Join(marks, ", ")+`)`)
	}
	query := `select ` + projectColumns + ` from projects`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, ` and `)
	}
	query += ` order by created_at desc`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
