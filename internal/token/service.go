package token

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"collabhub.org/internal/identity"
	"collabhub.org/internal/ids"
	"collabhub.org/internal/obs"
)

const (
	defaultIssuer     = "collabhub"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14
)

// PrincipalLoader rebuilds a principal from the durable identity record.
type PrincipalLoader interface {
	Load(ctx context.Context, userID string) (identity.Principal, error)
}

// Service issues, validates, and rotates signed access/refresh tokens and
// owns the refresh token ledger.
type Service struct {
	store  RefreshStore
	loader PrincipalLoader
	secret []byte
	now    func() time.Time

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithPrincipalLoader sets the loader used during rotation to rebuild the
// principal the new pair is bound to.
func WithPrincipalLoader(loader PrincipalLoader) ServiceOption {
	return func(s *Service) error {
		s.loader = loader
		return nil
	}
}

// NewService constructs Service. A missing signing secret is a
// configuration error, not a runtime condition.
func NewService(store RefreshStore, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("token: refresh store is required")
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token: signing secret is not configured")
	}
	svc := &Service{
		store:      store,
		secret:     []byte(secret),
		now:        time.Now,
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// IssueAccessToken signs a short-lived access token carrying the principal.
func (s *Service) IssueAccessToken(principal identity.Principal) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		Username:  principal.Username,
		Email:     principal.Email,
		Role:      string(principal.Role),
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   principal.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	obs.TokenIssued("access")
	return signed, exp, nil
}

// IssueRefreshToken persists a fresh ledger record and signs the matching
// refresh token.
func (s *Service) IssueRefreshToken(ctx context.Context, userID string) (string, *RefreshToken, error) {
	return s.issueRefreshToken(ctx, userID, "")
}

func (s *Service) issueRefreshToken(ctx context.Context, userID, supersedes string) (string, *RefreshToken, error) {
	now := s.now().UTC()
	rec := &RefreshToken{
		ID:         ids.New(),
		JTI:        uuid.NewString(),
		UserID:     userID,
		Supersedes: supersedes,
		Revoked:    false,
		ExpiresAt:  now.Add(s.refreshTTL),
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return "", nil, err
	}

	claims := RefreshClaims{
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ID:        rec.JTI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	obs.TokenIssued("refresh")
	return signed, rec, nil
}

// IssuePair issues a fresh access/refresh pair for the principal.
func (s *Service) IssuePair(ctx context.Context, principal identity.Principal) (Pair, error) {
	access, accessExp, err := s.IssueAccessToken(principal)
	if err != nil {
		return Pair{}, err
	}
	refresh, rec, err := s.IssueRefreshToken(ctx, principal.ID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
	}, nil
}

// ValidateAccessToken verifies signature, expiry, and token type.
func (s *Service) ValidateAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrTypeMismatch
	}
	return claims, nil
}

// ValidateRefreshToken verifies signature, expiry, and token type.
func (s *Service) ValidateRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrTypeMismatch
	}
	return claims, nil
}

func (s *Service) parse(raw string, claims jwt.Claims) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrMalformed
	}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrMalformed
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrMalformed
	}
	if !parsed.Valid {
		return ErrMalformed
	}
	return nil
}

// Rotate validates a refresh token, revokes its ledger record, and issues a
// fresh pair bound to the same principal. Revocation is conditional on the
// record not being revoked yet, so N concurrent rotations of one token
// produce exactly one winner.
func (s *Service) Rotate(ctx context.Context, raw string) (Pair, identity.Principal, error) {
	claims, err := s.ValidateRefreshToken(raw)
	if err != nil {
		obs.TokenRotation("invalid")
		return Pair{}, identity.Principal{}, err
	}

	rec, err := s.store.FindByJTI(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.TokenRotation("not_found")
		} else {
			obs.TokenRotation("error")
		}
		return Pair{}, identity.Principal{}, err
	}
	if s.now().After(rec.ExpiresAt) {
		obs.TokenRotation("expired")
		return Pair{}, identity.Principal{}, ErrExpired
	}
	if rec.Revoked {
		obs.TokenRotation("revoked")
		return Pair{}, identity.Principal{}, ErrRevoked
	}

	if err := s.store.Revoke(ctx, rec.JTI); err != nil {
		if errors.Is(err, ErrRevoked) {
			obs.TokenRotation("revoked")
		} else {
			obs.TokenRotation("error")
		}
		return Pair{}, identity.Principal{}, err
	}

	principal, err := s.loadPrincipal(ctx, rec.UserID)
	if err != nil {
		obs.TokenRotation("error")
		return Pair{}, identity.Principal{}, err
	}

	access, accessExp, err := s.IssueAccessToken(principal)
	if err != nil {
		obs.TokenRotation("error")
		return Pair{}, identity.Principal{}, err
	}
	refresh, newRec, err := s.issueRefreshToken(ctx, principal.ID, rec.JTI)
	if err != nil {
		obs.TokenRotation("error")
		return Pair{}, identity.Principal{}, err
	}

	obs.TokenRotation("ok")
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: newRec.ExpiresAt,
	}, principal, nil
}

func (s *Service) loadPrincipal(ctx context.Context, userID string) (identity.Principal, error) {
	if s.loader == nil {
		// Without a loader the pair is bound to the bare subject.
		return identity.Principal{ID: userID, Role: identity.RoleUser}, nil
	}
	return s.loader.Load(ctx, userID)
}

// RevokeRefreshToken marks one ledger record revoked (logout).
func (s *Service) RevokeRefreshToken(ctx context.Context, raw string) error {
	claims, err := s.ValidateRefreshToken(raw)
	if err != nil {
		return err
	}
	err = s.store.Revoke(ctx, claims.ID)
	if errors.Is(err, ErrRevoked) {
		// Logout is idempotent; an already revoked record is fine.
		return nil
	}
	return err
}

// RevokeAllForUser revokes every live refresh token of a user.
func (s *Service) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.store.RevokeAllForUser(ctx, userID)
}
