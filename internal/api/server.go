// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/occupancy/engine/internal/engine"
	"github.com/occupancy/engine/internal/log"
	"github.com/occupancy/engine/internal/metrics"
	"github.com/occupancy/engine/internal/model"
	"github.com/occupancy/engine/internal/ratelimit"
	"github.com/occupancy/engine/internal/telemetry"
)

// AuditRecorder is the subset of sqlite.AuditLog the server needs:
// satisfied structurally so this package never imports
// internal/persistence/sqlite directly.
type AuditRecorder interface {
	Record(ctx context.Context, tr model.StateTransition) error
}

// Clock returns the current instant. Overridden in tests; production
// wires time.Now.
type Clock func() time.Time

// Server wires one engine.Engine behind chi routes, reading the current
// instant from its Clock.
type Server struct {
	engine         *engine.Engine
	limiter        *ratelimit.Limiter
	audit          AuditRecorder
	clock          Clock
	snapshotMaxAge time.Duration
	router         chi.Router
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithClock overrides the server's time source, for deterministic tests.
func WithClock(c Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithRateLimiter installs a per-source rate limiter guarding
// POST /v1/events. Without it, only the remote-address httprate limit
// applies.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithAuditRecorder installs a sink that every committed StateTransition
// is recorded to, best-effort (a recording failure is logged, never
// surfaced to the HTTP caller whose request already succeeded).
func WithAuditRecorder(a AuditRecorder) Option {
	return func(s *Server) { s.audit = a }
}

// WithSnapshotMaxAge is forwarded to every engine.Restore call as the
// maxAge parameter, kept for parity with that signature. It never gates
// a whole restore payload — a LOCKED_FROZEN entry restores verbatim
// under rule R-A no matter its age, and an unlocked entry's staleness is
// judged per-entry by R-C against occupied_until, not against this
// value.
func WithSnapshotMaxAge(d time.Duration) Option {
	return func(s *Server) { s.snapshotMaxAge = d }
}

// New builds a Server and its routing table around eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine: eng,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(log.Middleware())
	r.Route("/v1", func(v1 chi.Router) {
		v1.With(httprate.LimitByIP(60, time.Minute)).Post("/events", s.handlePostEvent)
		v1.Post("/timeouts/check", s.handleCheckTimeouts)
		v1.Get("/locations/{id}", s.handleGetLocation)
		v1.Get("/snapshot", s.handleGetSnapshot)
		v1.Post("/snapshot/restore", s.handlePostSnapshotRestore)
	})
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	s.router = r

	return s
}

// Handler returns the server's root http.Handler, including /metrics:
// this service's surface is small enough to serve off one listener
// rather than a dedicated metrics port. The returned handler wraps the
// chi router with OpenTelemetry's HTTP instrumentation, so every request
// gets a server span (and participates in the caller's trace if one is
// propagated in), excluding the health and metrics probes themselves.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "occupancy-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			switch r.URL.Path {
			case "/healthz", "/metrics":
				return false
			default:
				return true
			}
		}),
	)
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.Tracer("occupancy.api").Start(r.Context(), "HandleEvent")
	defer span.End()

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LocationID == "" || req.Kind == "" {
		writeError(w, http.StatusBadRequest, "location_id and kind are required")
		return
	}

	if s.limiter != nil && req.SourceID != "" && !s.limiter.Allow(req.SourceID) {
		writeError(w, http.StatusTooManyRequests, "source rate limit exceeded")
		return
	}

	now := s.clock()
	event := req.toEvent(now)

	span.SetAttributes(telemetry.EventAttributes(string(event.Kind), event.Category, event.SourceID)...)

	result := s.engine.HandleEvent(event, now)
	s.recordAudit(ctx, result)
	recordTransitionMetrics(result)
	writeJSON(w, http.StatusOK, toResultResponse(result))
}

func (s *Server) handleCheckTimeouts(w http.ResponseWriter, r *http.Request) {
	_, span := telemetry.Tracer("occupancy.api").Start(r.Context(), "CheckTimeouts")
	defer span.End()

	now := s.clock()
	result := s.engine.CheckTimeouts(now)
	span.SetAttributes(telemetry.TransitionAttributes("", len(result.Transitions))...)
	s.recordAudit(r.Context(), result)
	recordTransitionMetrics(result)
	writeJSON(w, http.StatusOK, toResultResponse(result))
}

// recordAudit best-effort logs every committed transition from result to
// the audit sink, if one is installed. A failure here never fails the
// HTTP request it rode in on.
func (s *Server) recordAudit(ctx context.Context, result engine.Result) {
	if s.audit == nil {
		return
	}
	for _, tr := range result.Transitions {
		if err := s.audit.Record(ctx, tr); err != nil {
			log.FromContext(ctx).Warn().Err(err).Str("transition_id", tr.ID).Msg("audit record failed")
		}
	}
}

// recordTransitionMetrics updates the occupancy_active_gauge and
// occupancy_next_expiration_seconds gauges from a freshly committed
// Result, mirroring what the sweeper does on the daemon's own timer path.
func recordTransitionMetrics(result engine.Result) {
	for _, tr := range result.Transitions {
		metrics.SetActive(tr.LocationID, tr.New.IsOccupied)
	}
	metrics.SetNextExpiration(result.NextExpiration)
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok := s.engine.LocationState(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown location")
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(id, st))
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snapshotRequest{
		SavedAt: s.clock(),
		Entries: s.engine.Export(),
	})
}

func (s *Server) handlePostSnapshotRestore(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	now := s.clock()
	s.engine.Restore(req.Entries, now, s.snapshotMaxAge)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
