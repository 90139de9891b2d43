package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"collabhub.org/internal/audit"
	"collabhub.org/internal/identity"
	"collabhub.org/internal/stream"
	"collabhub.org/internal/token"
)

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		Role:          string(u.Role),
		CreatedAt:     u.CreatedAt,
	}
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPairResponse struct {
	TokenType        string    `json:"token_type"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" {
		writeError(w, r, http.StatusBadRequest, "email and username are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := a.identity.Register(r.Context(), identity.RegisterRequest{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})
	a.publish(stream.Event{Type: stream.TypeRegister, Subject: user.ID}, r)

	w.Header().Set("Location", "/v1/users/"+user.ID)
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Code = strings.TrimSpace(req.Code)
	if req.Email == "" || req.Code == "" {
		writeError(w, r, http.StatusBadRequest, "email and code are required")
		return
	}

	if err := a.identity.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.email_verified", map[string]any{
		"email": req.Email,
	})
	a.publish(stream.Event{Type: stream.TypeEmailVerified, Subject: req.Email}, r)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	principal, err := a.identity.Authenticate(r.Context(), username, req.Password)
	if err != nil {
		a.publish(stream.Event{Type: stream.TypeLoginFailed, Subject: username}, r)
		writeDomainError(w, r, err)
		return
	}

	pair, err := a.tokens.IssuePair(r.Context(), principal)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":  principal.ID,
		"username": principal.Username,
	})
	a.publish(stream.Event{Type: stream.TypeLogin, Subject: principal.ID}, r)

	writeJSON(w, http.StatusOK, tokenPairResponse{
		TokenType:        "Bearer",
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, principal, err := a.tokens.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, token.ErrRevoked) {
			a.publish(stream.Event{Type: stream.TypeRefreshReuse}, r)
		}
		writeDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": principal.ID,
	})
	a.publish(stream.Event{Type: stream.TypeRefresh, Subject: principal.ID}, r)

	writeJSON(w, http.StatusOK, tokenPairResponse{
		TokenType:        "Bearer",
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

// handleLogout invalidates the presented access token for its remaining
// lifetime and marks the refresh token revoked in the ledger. Logout is
// idempotent.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}

	var req logoutRequest
	// Body is optional: logout with no refresh token still kills the
	// access token.
	_ = decodeJSON(w, r, &req)

	raw, _ := identity.TokenFromContext(r.Context())
	claims, err := a.tokens.ValidateAccessToken(raw)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if err := a.blacklist.Add(r.Context(), claims.ID, remaining); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "token revocation unavailable")
		return
	}

	if strings.TrimSpace(req.RefreshToken) != "" {
		if err := a.tokens.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"user_id": principal.ID,
	})
	a.publish(stream.Event{Type: stream.TypeLogout, Subject: principal.ID}, r)
	w.WriteHeader(http.StatusNoContent)
}
