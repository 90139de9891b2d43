// Package obs holds the observability surface shared by the whole service:
// prometheus metrics, the JSON line logger, and HTTP instrumentation.
package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	tokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Tokens issued, by token type.",
	}, []string{"type"})

	tokenRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Refresh token rotation attempts, by result.",
	}, []string{"result"})

	blacklistChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_blacklist_checks_total",
		Help: "Revocation store lookups, by result (hit, miss, error).",
	}, []string{"result"})
)

// Init registers all service metrics in the default registry. Call once at
// process start.
func Init() {
	prometheus.MustRegister(
		inFlight, requestsTotal, requestDuration,
		tokensIssued, tokenRotations, blacklistChecks,
	)
}

// TokenIssued records an issued token ("access" or "refresh").
func TokenIssued(tokenType string) { tokensIssued.WithLabelValues(tokenType).Inc() }

// TokenRotation records a rotation attempt outcome
// ("ok", "revoked", "expired", "not_found", "invalid", "error").
func TokenRotation(result string) { tokenRotations.WithLabelValues(result).Inc() }

// BlacklistCheck records a revocation store lookup outcome.
func BlacklistCheck(result string) { blacklistChecks.WithLabelValues(result).Inc() }

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

// Instrument measures RPS, latency, and in-flight count for every request
// passing through next.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight.Inc()
		defer inFlight.Dec()

		rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		labels := []string{r.Method, r.URL.Path, strconv.Itoa(rec.code)}
		requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(labels...).Inc()
	})
}

// codeRecorder captures the response code for metric labels.
type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (w *codeRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the instrumented chain.
func (w *codeRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
