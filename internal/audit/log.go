// Package audit writes the durable audit trail: one JSON line per
// security-relevant action, enriched with the request id and acting user.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"collabhub.org/internal/identity"
	"collabhub.org/internal/obs"
)

type ctxKey struct{}

// WithRequestID attaches the request identifier for later audit entries.
// Blank identifiers are not attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestIDFromContext returns the attached request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// LogEvent records one audit entry. The event name is required; fields carry
// event-specific detail and are copied before logging.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("audit: event name is required")
	}

	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"type":  "audit",
		"event": event,
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if principal, ok := identity.PrincipalFromContext(ctx); ok {
		entry["user_id"] = principal.ID
	}
	detail := make(map[string]any, len(fields))
	for k, v := range fields {
		detail[k] = v
	}
	entry["fields"] = detail

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(line))
	return nil
}
