package identity

import (
	"context"
	"errors"
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"collabhub.org/internal/ids"
	"collabhub.org/internal/mail"
	"collabhub.org/internal/obs"
)

const defaultCodeTTL = 15 * time.Minute

// dummyHash absorbs a bcrypt comparison for unknown usernames so the
// failure path costs the same as a wrong password.
var dummyHash, _ = HashPassword("collabhub-dummy-credential")

// Service registers accounts, verifies email ownership, and checks
// presented credentials against stored identities.
type Service struct {
	store   Store
	mailer  mail.Sender
	now     func() time.Time
	codeTTL time.Duration

	hash   func(password string) (string, error)
	verify func(hash, password string) error
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithMailer sets the outbound mail sender.
func WithMailer(sender mail.Sender) ServiceOption {
	return func(s *Service) error {
		if sender != nil {
			s.mailer = sender
		}
		return nil
	}
}

// WithCodeTTL configures verification code lifetime.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.codeTTL = ttl
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

// WithHasher overrides the password hash/verify pair.
func WithHasher(hash func(string) (string, error), verify func(hash, password string) error) ServiceOption {
	return func(s *Service) error {
		if hash != nil {
			s.hash = hash
		}
		if verify != nil {
			s.verify = verify
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	svc := &Service{
		store:   store,
		mailer:  mail.LogSender{},
		now:     time.Now,
		codeTTL: defaultCodeTTL,
		hash:    HashPassword,
		verify:  VerifyPassword,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// RegisterRequest carries the fields needed to create an account.
type RegisterRequest struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user with an unverified email, a LOCAL auth identity,
// and a pending email verification code delivered via the mail sender.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", ErrInvalidCredentials)
	}

	users := s.store.Users(ctx)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email %s", ErrConflict, email)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := users.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username %s", ErrConflict, username)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user := &User{
		ID:            ids.New(),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         email,
		Username:      username,
		EmailVerified: false,
		Role:          RoleUser,
		CreatedAt:     s.now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}

	passwordHash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}
	ident := &AuthIdentity{
		ID:             ids.New(),
		Provider:       ProviderLocal,
		ProviderUserID: username,
		PasswordHash:   passwordHash,
		UserID:         user.ID,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.Identities(ctx).Create(ctx, ident); err != nil {
		return nil, err
	}

	code := &VerificationCode{
		ID:        ids.New(),
		Code:      generateCode(),
		Purpose:   PurposeEmail,
		UserID:    user.ID,
		Used:      false,
		ExpiresAt: s.now().Add(s.codeTTL),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Codes(ctx).Create(ctx, code); err != nil {
		return nil, err
	}

	if err := s.sendVerificationEmail(ctx, user, code.Code); err != nil {
		// Registration already committed; the code can be re-requested.
		obs.LogRequest(map[string]any{
			"level": "warn",
			"msg":   "verification_mail_failed",
			"user":  user.ID,
			"error": err.Error(),
		})
	}
	return user, nil
}

// VerifyEmail consumes the latest unused email verification code.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	stored, err := s.store.Codes(ctx).LatestUnused(ctx, user.ID, PurposeEmail)
	if err != nil {
		return err
	}
	if stored.Code != strings.TrimSpace(code) {
		return ErrCodeMismatch
	}
	if stored.ExpiresAt.Before(s.now()) {
		return ErrCodeExpired
	}

	if err := s.store.Codes(ctx).MarkUsed(ctx, stored.ID); err != nil {
		return err
	}
	return s.store.Users(ctx).SetEmailVerified(ctx, user.ID)
}

// Authenticate checks a username/password pair against the stored LOCAL
// identity. Unknown usernames and wrong passwords are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}

	ident, err := s.store.Identities(ctx).FindLocal(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = s.verify(dummyHash, password)
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}
	if err := s.verify(ident.PasswordHash, password); err != nil {
		return Principal{}, ErrInvalidCredentials
	}

	user, err := s.store.Users(ctx).Find(ctx, ident.UserID)
	if err != nil {
		return Principal{}, err
	}
	return PrincipalOf(user), nil
}

// Load rebuilds a Principal from the durable user record.
func (s *Service) Load(ctx context.Context, userID string) (Principal, error) {
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return Principal{}, err
	}
	return PrincipalOf(user), nil
}

func generateCode() string {
	return fmt.Sprintf("%06d", 100000+mathrand.Intn(900000))
}

func (s *Service) sendVerificationEmail(ctx context.Context, user *User, code string) error {
	subject := "Verify your email"
	body := fmt.Sprintf(`Hi %s,

Welcome aboard.

Your email verification code is:

%s

This code expires in %d minutes.

- Collabhub Team
`, user.FirstName, code, int(s.codeTTL.Minutes()))
	return s.mailer.Send(ctx, user.Email, subject, body)
}
