package httpapi

import (
	"encoding/json"
	"net/http"
)

// Stream serves the security event feed over Server-Sent Events. The feed
// exposes subjects and request ids, so it is admin only.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !principal.IsAdmin() {
		writeError(w, r, http.StatusForbidden, "admin role required")
		return
	}
	if a.events == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Opening comment lets the client know the stream is live before the
	// first event arrives.
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	events := a.events.Subscribe(r.Context())
	for {
		evt, open := <-events
		if !open {
			return
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
