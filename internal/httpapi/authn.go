package httpapi

import (
	"net/http"
	"strings"

	"collabhub.org/internal/authz"
	"collabhub.org/internal/identity"
	"collabhub.org/internal/obs"
	"collabhub.org/internal/stream"
	"collabhub.org/internal/token"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// withAuth resolves the bearer token into a request principal. A missing or
// malformed Authorization header leaves the request anonymous; handlers that
// need a principal reject it themselves. A present token that fails
// validation is an error. The revocation list is consulted fail-closed: if
// the list is unreachable the request is rejected rather than assumed clean.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := extractBearerToken(r.Header.Get(authHeader))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.tokens.ValidateAccessToken(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}

		revoked, err := a.blacklist.Contains(r.Context(), claims.ID)
		if err != nil {
			obs.BlacklistCheck("error")
			writeError(w, r, http.StatusServiceUnavailable, "token revocation check unavailable")
			return
		}
		if revoked {
			obs.BlacklistCheck("hit")
			a.publish(stream.Event{Type: stream.TypeBlacklistHit, Subject: claims.Subject}, r)
			writeDomainError(w, r, token.ErrRevoked)
			return
		}
		obs.BlacklistCheck("miss")

		principal := identity.Principal{
			ID:       claims.Subject,
			Username: claims.Username,
			Email:    claims.Email,
			Role:     identity.Role(claims.Role),
		}
		ctx := identity.ContextWithPrincipal(r.Context(), principal)
		ctx = identity.ContextWithToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePrincipal fetches the authenticated principal or rejects with 401.
func (a *API) requirePrincipal(w http.ResponseWriter, r *http.Request) (identity.Principal, bool) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return identity.Principal{}, false
	}
	return p, true
}

// authorize runs a decision through the engine and writes the failure, if
// any, to the response.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, p identity.Principal, d authz.Decision) bool {
	if err := a.authz.Authorize(r.Context(), p, d); err != nil {
		writeDomainError(w, r, err)
		return false
	}
	return true
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerPrefix)) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	if tok == "" {
		return "", false
	}
	return tok, true
}
