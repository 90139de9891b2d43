package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collabhub.org/internal/identity"
)

const testSecret = "test-secret-at-least-32-bytes-long"

var testPrincipal = identity.Principal{
	ID:       "user-1",
	Username: "alice",
	Email:    "alice@example.com",
	Role:     identity.RoleUser,
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *InMemory) {
	t.Helper()
	store := NewInMemory()
	svc, err := NewService(store, testSecret, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(NewInMemory(), "  "); err == nil {
		t.Fatal("expected configuration error for empty secret")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	raw, exp, err := svc.IssueAccessToken(testPrincipal)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected future expiry, got %v", exp)
	}

	claims, err := svc.ValidateAccessToken(raw)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Subject != testPrincipal.ID {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("identity claims not preserved: %+v", claims)
	}
	if claims.Role != string(identity.RoleUser) {
		t.Fatalf("unexpected role claim: %s", claims.Role)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("unexpected token_type: %s", claims.TokenType)
	}
}

func TestAccessTokenExpires(t *testing.T) {
	current := time.Now()
	svc, _ := newTestService(t,
		WithAccessTTL(15*time.Minute),
		WithClock(func() time.Time { return current }),
	)

	raw, _, err := svc.IssueAccessToken(testPrincipal)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	current = current.Add(16 * time.Minute)
	if _, err := svc.ValidateAccessToken(raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestValidateRejectsWrongType(t *testing.T) {
	svc, _ := newTestService(t)

	access, _, err := svc.IssueAccessToken(testPrincipal)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := svc.ValidateRefreshToken(access); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("access-as-refresh: got %v", err)
	}

	refresh, _, err := svc.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, err := svc.ValidateAccessToken(refresh); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("refresh-as-access: got %v", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc, _ := newTestService(t)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.ValidateAccessToken(raw); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestRefreshTokenLedgerRoundTrip(t *testing.T) {
	svc, store := newTestService(t)

	raw, rec, err := svc.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	claims, err := svc.ValidateRefreshToken(raw)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	if claims.ID != rec.JTI {
		t.Fatalf("claims jti %s does not match ledger record %s", claims.ID, rec.JTI)
	}

	stored, err := store.FindByJTI(context.Background(), claims.ID)
	if err != nil {
		t.Fatalf("FindByJTI: %v", err)
	}
	if stored.Revoked {
		t.Fatal("fresh record must not be revoked")
	}
	if stored.UserID != testPrincipal.ID {
		t.Fatalf("unexpected owner: %s", stored.UserID)
	}
}

func TestRotateRevokesOldToken(t *testing.T) {
	svc, store := newTestService(t)

	raw, rec, err := svc.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	pair, principal, err := svc.Rotate(context.Background(), raw)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if principal.ID != testPrincipal.ID {
		t.Fatalf("rotated principal %s, want %s", principal.ID, testPrincipal.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a fresh pair")
	}

	// The old token is spent.
	if _, _, err := svc.Rotate(context.Background(), raw); !errors.Is(err, ErrRevoked) {
		t.Fatalf("second rotation: expected ErrRevoked, got %v", err)
	}

	// The new record traces back to the old one.
	newClaims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken: %v", err)
	}
	newRec, err := store.FindByJTI(context.Background(), newClaims.ID)
	if err != nil {
		t.Fatalf("FindByJTI: %v", err)
	}
	if newRec.Supersedes != rec.JTI {
		t.Fatalf("supersedes %s, want %s", newRec.Supersedes, rec.JTI)
	}

	// The spent record stays in the ledger for audit.
	old, err := store.FindByJTI(context.Background(), rec.JTI)
	if err != nil {
		t.Fatalf("FindByJTI old: %v", err)
	}
	if !old.Revoked {
		t.Fatal("old record must be marked revoked, not deleted")
	}
}

func TestRotateExpiredLedgerRecord(t *testing.T) {
	current := time.Now()
	svc, _ := newTestService(t,
		WithRefreshTTL(time.Hour),
		WithClock(func() time.Time { return current }),
	)

	raw, _, err := svc.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	current = current.Add(2 * time.Hour)
	if _, _, err := svc.Rotate(context.Background(), raw); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestRotateUnknownJTI(t *testing.T) {
	svc, _ := newTestService(t)
	other, err := NewService(NewInMemory(), testSecret)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	// Token signed correctly but its ledger record lives elsewhere.
	raw, _, err := other.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, _, err := svc.Rotate(context.Background(), raw); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)

	raw, _, err := svc.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}

	const callers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Rotate(context.Background(), raw)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrRevoked), errors.Is(err, ErrNotFound):
				rejected++
			default:
				t.Errorf("unexpected rotation error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if rejected != callers-1 {
		t.Fatalf("expected %d rejected rotations, got %d", callers-1, rejected)
	}
}

func TestRevokeRefreshTokenIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)

	raw, _, err := svc.IssueRefreshToken(context.Background(), testPrincipal.ID)
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if err := svc.RevokeRefreshToken(context.Background(), raw); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := svc.RevokeRefreshToken(context.Background(), raw); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if _, _, err := svc.Rotate(context.Background(), raw); !errors.Is(err, ErrRevoked) {
		t.Fatalf("rotation after revoke: got %v", err)
	}
}
