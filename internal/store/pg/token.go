package pg

import (
	"context"
	"database/sql"
	"errors"

	"collabhub.org/internal/token"
)

type pgRefresh Store

func (s *pgRefresh) Create(ctx context.Context, tok *token.RefreshToken) error {
	_, err := s.db.ExecContext(ctx, `
		insert into refresh_tokens (id, jti, user_id, supersedes, revoked, expires_at, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, tok.ID, tok.JTI, tok.UserID, nullIfEmpty(tok.Supersedes), tok.Revoked, tok.ExpiresAt, tok.CreatedAt)
	return err
}

func (s *pgRefresh) FindByJTI(ctx context.Context, jti string) (*token.RefreshToken, error) {
	var (
		t          token.RefreshToken
		supersedes sql.NullString
		updated    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		select id, jti, user_id, supersedes, revoked, expires_at, created_at, updated_at
		from refresh_tokens
		where jti = $1
	`, jti).Scan(&t.ID, &t.JTI, &t.UserID, &supersedes, &t.Revoked, &t.ExpiresAt, &t.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, token.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if supersedes.Valid {
		t.Supersedes = supersedes.String
	}
	if updated.Valid {
		t.UpdatedAt = updated.Time
	}
	return &t, nil
}

// Revoke flips the revoked flag only when it is still clear. The row count
// decides concurrent rotations: the loser sees zero rows and gets
// ErrRevoked.
func (s *pgRefresh) Revoke(ctx context.Context, jti string) error {
	res, err := s.db.ExecContext(ctx, `
		update refresh_tokens
		set revoked = true, updated_at = now()
		where jti = $1 and not revoked
	`, jti)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var revoked bool
	err = s.db.QueryRowContext(ctx,
		`select revoked from refresh_tokens where jti = $1`, jti).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return token.ErrNotFound
	}
	if err != nil {
		return err
	}
	return token.ErrRevoked
}

func (s *pgRefresh) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens
		set revoked = true, updated_at = now()
		where user_id = $1 and not revoked
	`, userID)
	return err
}
