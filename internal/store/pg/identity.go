package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"collabhub.org/internal/identity"
)

// Sub-store views share the pool; the context parameter keeps the interface
// open for per-request transaction scoping later.
func (s *Store) Users(ctx context.Context) identity.UserStore              { return (*pgUsers)(s) }
func (s *Store) Identities(ctx context.Context) identity.AuthIdentityStore { return (*pgIdentities)(s) }
func (s *Store) Codes(ctx context.Context) identity.VerificationCodeStore  { return (*pgCodes)(s) }

type pgUsers Store

func (s *pgUsers) Create(ctx context.Context, u *identity.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, first_name, last_name, email, username, email_verified, role, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.FirstName, u.LastName, u.Email, u.Username, u.EmailVerified, u.Role, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email or username already registered", identity.ErrConflict)
		}
		return err
	}
	return nil
}

const userColumns = `id, first_name, last_name, email, username, email_verified, role, created_at, updated_at`

func (s *pgUsers) scanUser(row *sql.Row) (*identity.User, error) {
	var (
		u       identity.User
		updated sql.NullTime
	)
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username,
		&u.EmailVerified, &u.Role, &u.CreatedAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		u.UpdatedAt = updated.Time
	}
	return &u, nil
}

func (s *pgUsers) Find(ctx context.Context, id string) (*identity.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (s *pgUsers) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email))
}

func (s *pgUsers) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username = $1`, username))
}

func (s *pgUsers) SetEmailVerified(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email_verified = true, updated_at = now() where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

type pgIdentities Store

func (s *pgIdentities) Create(ctx context.Context, ident *identity.AuthIdentity) error {
	_, err := s.db.ExecContext(ctx, `
		insert into auth_identities (id, provider, provider_user_id, password_hash, user_id, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, ident.ID, ident.Provider, ident.ProviderUserID, nullIfEmpty(ident.PasswordHash), ident.UserID, ident.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: identity already exists", identity.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *pgIdentities) FindLocal(ctx context.Context, providerUserID string) (*identity.AuthIdentity, error) {
	var (
		ident identity.AuthIdentity
		hash  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, provider, provider_user_id, password_hash, user_id, created_at
		from auth_identities
		where provider = $1 and provider_user_id = $2
	`, identity.ProviderLocal, providerUserID).Scan(
		&ident.ID, &ident.Provider, &ident.ProviderUserID, &hash, &ident.UserID, &ident.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if hash.Valid {
		ident.PasswordHash = hash.String
	}
	return &ident, nil
}

type pgCodes Store

func (s *pgCodes) Create(ctx context.Context, code *identity.VerificationCode) error {
	_, err := s.db.ExecContext(ctx, `
		insert into verification_codes (id, code, purpose, user_id, used, expires_at, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, code.ID, code.Code, code.Purpose, code.UserID, code.Used, code.ExpiresAt, code.CreatedAt)
	return err
}

func (s *pgCodes) LatestUnused(ctx context.Context, userID string, purpose identity.Purpose) (*identity.VerificationCode, error) {
	var c identity.VerificationCode
	err := s.db.QueryRowContext(ctx, `
		select id, code, purpose, user_id, used, expires_at, created_at
		from verification_codes
		where user_id = $1 and purpose = $2 and not used
		order by created_at desc
		limit 1
	`, userID, purpose).Scan(&c.ID, &c.Code, &c.Purpose, &c.UserID, &c.Used, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *pgCodes) MarkUsed(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update verification_codes set used = true where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}
