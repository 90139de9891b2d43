// Package pg implements the identity, token, membership, and project stores
// on PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"collabhub.org/internal/identity"
	"collabhub.org/internal/membership"
	"collabhub.org/internal/project"
	"collabhub.org/internal/token"
)

const pgErrUniqueViolation = "23505"

// Store is a single connection pool serving every persistence interface.
type Store struct {
	db *sql.DB
}

var (
	_ identity.Store     = (*Store)(nil)
	_ token.RefreshStore = (*pgRefresh)(nil)
	_ membership.Store   = (*pgMemberships)(nil)
	_ project.Store      = (*pgProjects)(nil)
)

// RefreshTokens returns the refresh token ledger view.
func (s *Store) RefreshTokens() token.RefreshStore { return (*pgRefresh)(s) }

// Memberships returns the membership store view.
func (s *Store) Memberships() membership.Store { return (*pgMemberships)(s) }

// Projects returns the project store view.
func (s *Store) Projects() project.Store { return (*pgProjects)(s) }

// Open connects to PostgreSQL using the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle, used by tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// --- helpers ---

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	pgErr, ok := maybePgError(err)
	return ok && pgErr.Code == pgErrUniqueViolation
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullIfZero(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
