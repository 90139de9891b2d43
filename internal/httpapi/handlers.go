// Package httpapi is the HTTP surface of the collabhub service. It wires
// request parsing, the middleware chain, and the authorization engine in
// front of the domain services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"collabhub.org/api/spec"
	"collabhub.org/internal/authz"
	"collabhub.org/internal/identity"
	"collabhub.org/internal/membership"
	"collabhub.org/internal/obs"
	"collabhub.org/internal/project"
	"collabhub.org/internal/revoke"
	"collabhub.org/internal/stream"
	"collabhub.org/internal/token"
)

// ReadyProbe reports whether the service's dependencies are reachable.
type ReadyProbe struct {
	Check func(ctx context.Context) error
}

func (rp ReadyProbe) check(ctx context.Context) error {
	if rp.Check == nil {
		return nil
	}
	return rp.Check(ctx)
}

// Config collects everything the HTTP layer depends on.
type Config struct {
	Version   string
	Ready     ReadyProbe
	Identity  *identity.Service
	Tokens    *token.Service
	Blacklist revoke.List
	Members   *membership.Service
	Projects  *project.Service
	Authz     *authz.Engine
	Events    *stream.Stream
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	identity  *identity.Service
	tokens    *token.Service
	blacklist revoke.List
	members   *membership.Service
	projects  *project.Service
	authz     *authz.Engine
	events    *stream.Stream

	rateBurst  int
	ratePerSec int
}

// New builds the API and registers all routes.
func New(cfg Config) (*API, error) {
	switch {
	case cfg.Identity == nil:
		return nil, errors.New("httpapi: identity service is required")
	case cfg.Tokens == nil:
		return nil, errors.New("httpapi: token service is required")
	case cfg.Blacklist == nil:
		return nil, errors.New("httpapi: blacklist is required")
	case cfg.Members == nil:
		return nil, errors.New("httpapi: membership service is required")
	case cfg.Projects == nil:
		return nil, errors.New("httpapi: project service is required")
	case cfg.Authz == nil:
		return nil, errors.New("httpapi: authorization engine is required")
	}

	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		identity:   cfg.Identity,
		tokens:     cfg.Tokens,
		blacklist:  cfg.Blacklist,
		members:    cfg.Members,
		projects:   cfg.Projects,
		authz:      cfg.Authz,
		events:     cfg.Events,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth flows
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/verify-email", a.handleVerifyEmail)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	// projects and memberships
	a.mux.HandleFunc("/v1/projects", a.handleProjectsCollection)
	a.mux.HandleFunc("/v1/projects/", a.handleProjectResource)
	a.mux.HandleFunc("/v1/members/", a.handleMemberResource)

	// security event stream
	a.mux.HandleFunc("/v1/events", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a, nil
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "collabhub-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "collabhub-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

func (a *API) publish(evt stream.Event, r *http.Request) {
	if a.events == nil {
		return
	}
	evt.RequestID = RequestIDFromContext(r.Context())
	a.events.Publish(evt)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// writeDomainError maps domain sentinels to transport status codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, token.ErrMalformed),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrRevoked),
		errors.Is(err, token.ErrTypeMismatch),
		errors.Is(err, token.ErrNotFound):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authz.ErrDenied),
		errors.Is(err, membership.ErrOwnerCannotLeave):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, membership.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, authz.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrConflict),
		errors.Is(err, membership.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrCodeMismatch),
		errors.Is(err, identity.ErrCodeExpired),
		errors.Is(err, membership.ErrInvalidTransition),
		errors.Is(err, membership.ErrCannotAssignOwner),
		errors.Is(err, project.ErrInvalidTransition),
		errors.Is(err, project.ErrInvalidStatus),
		errors.Is(err, project.ErrInvalidScope):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
