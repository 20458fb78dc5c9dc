// SPDX-License-Identifier: MIT

// Package engine implements the occupancy state-evaluation and
// propagation engine: a deterministic, single-writer state machine over a
// hierarchy of locations. Nothing in this package reads the wall clock or
// performs I/O — every timestamp arrives from the caller.
package engine

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/occupancy/engine/internal/model"
)

// MetricsRecorder receives outcome counters from engine operations. The
// zero value (noopRecorder) discards everything, so an Engine built
// without WithMetrics is fully usable in unit tests. SweepDuration is
// never called by this package — CheckTimeouts takes `now` as an opaque
// instant and has no wall-clock access to time itself — it is part of the
// interface so a host can report how long its CheckTimeouts calls take; no
// caller in this repository invokes it.
type MetricsRecorder interface {
	TransitionCommitted(locationID string, reason model.TransitionReason)
	EventOutcome(kind model.EventKind, outcome string)
	InvariantViolation(rule string)
	SweepDuration(d time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) TransitionCommitted(string, model.TransitionReason) {}
func (noopRecorder) EventOutcome(model.EventKind, string)               {}
func (noopRecorder) InvariantViolation(string)                          {}
func (noopRecorder) SweepDuration(time.Duration)                        {}

// Logger is the minimal surface the engine needs from an observability
// backend; internal/api's zerolog adapter (NewEngineLogger) satisfies it.
type Logger interface {
	Warn(msg string, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, map[string]any) {}

// IDGenerator produces StateTransition.ID values. Overridable for
// deterministic tests.
type IDGenerator func() string

// Result is returned by every public engine operation: the transitions it
// committed, in commit order, and the next wakeup instant per §4.4.
type Result struct {
	Transitions   []model.StateTransition
	NextExpiration *time.Time
}

// Engine owns one hierarchy's configuration and runtime state. All public
// methods serialize through an internal mutex: callers do not need to
// provide their own external lock to get the single-writer contract the
// core design assumes, though the HTTP host still funnels every request
// through one Engine instance rather than relying on this alone.
type Engine struct {
	mu sync.Mutex

	configs        map[string]model.LocationConfig
	followChildren map[string][]string // parent id -> children with Strategy == FOLLOW_PARENT
	states         map[string]model.LocationRuntimeState

	metrics MetricsRecorder
	logger  Logger
	nextID  IDGenerator
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMetrics installs a MetricsRecorder. Without it, metrics are discarded.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger installs a Logger for diagnostic warnings (unknown location,
// malformed snapshot entries). Without it, warnings are discarded.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithIDGenerator overrides how StateTransition.ID values are produced.
// Without it, IDs come from a process-wide counter ("tr-1", "tr-2", ...);
// cmd/occupancyd installs a google/uuid generator.
func WithIDGenerator(f IDGenerator) Option {
	return func(e *Engine) { e.nextID = f }
}

// WithInitialState seeds runtime state for a subset of configured
// locations, e.g. immediately after Restore. Locations not present start
// at model.DefaultState(). Unknown ids in initial are ignored.
func WithInitialState(initial map[string]model.LocationRuntimeState) Option {
	return func(e *Engine) {
		for id, st := range initial {
			if _, ok := e.configs[id]; ok {
				e.states[id] = st.Clone()
			}
		}
	}
}

// Construct builds an Engine from a location topology. It validates that
// every id is unique and that every ParentID refers to a configured
// location, returning a wrapped ErrConfigDuplicateID / ErrConfigDanglingParent
// otherwise. Every location starts at model.DefaultState() unless
// WithInitialState overrides it.
func Construct(configs []model.LocationConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		configs:        make(map[string]model.LocationConfig, len(configs)),
		followChildren: make(map[string][]string),
		states:         make(map[string]model.LocationRuntimeState, len(configs)),
		metrics:        noopRecorder{},
		logger:         noopLogger{},
		nextID:         defaultIDGenerator,
	}

	for _, cfg := range configs {
		if _, dup := e.configs[cfg.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrConfigDuplicateID, cfg.ID)
		}
		e.configs[cfg.ID] = cfg
		e.states[cfg.ID] = model.DefaultState()
	}

	ids := make([]string, 0, len(e.configs))
	for id := range e.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic error ordering when more than one config is bad

	for _, id := range ids {
		cfg := e.configs[id]
		if !cfg.HasParent() {
			continue
		}
		if _, ok := e.configs[cfg.ParentID]; !ok {
			return nil, fmt.Errorf("%w: %s -> %s", ErrConfigDanglingParent, cfg.ID, cfg.ParentID)
		}
		if cfg.Strategy == model.StrategyFollowParent {
			e.followChildren[cfg.ParentID] = append(e.followChildren[cfg.ParentID], cfg.ID)
		}
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// LocationState returns a defensive copy of a location's current runtime
// state. ok is false for an unconfigured id.
func (e *Engine) LocationState(id string) (model.LocationRuntimeState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[id]
	if !ok {
		return model.LocationRuntimeState{}, false
	}
	return st.Clone(), true
}

// Locations returns the configured location ids, sorted, for callers that
// need to enumerate the hierarchy.
func (e *Engine) Locations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.configs))
	for id := range e.configs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reconfigure adds new locations and updates the topology of existing
// ones from a freshly loaded config file, without touching the state
// map: a location dropped from the file keeps its last runtime state
// (still reachable by id) but a location present in both keeps its
// current state even as its config changes underneath it. Validation
// mirrors Construct: duplicate ids within configs, or any dangling
// parent once merged with the existing topology, abort the whole
// reconfiguration and leave the engine untouched.
func (e *Engine) Reconfigure(configs []model.LocationConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if _, dup := seen[cfg.ID]; dup {
			return fmt.Errorf("%w: %s", ErrConfigDuplicateID, cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
	}

	merged := make(map[string]model.LocationConfig, len(e.configs)+len(configs))
	for id, cfg := range e.configs {
		merged[id] = cfg
	}
	for _, cfg := range configs {
		merged[cfg.ID] = cfg
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cfg := merged[id]
		if !cfg.HasParent() {
			continue
		}
		if _, ok := merged[cfg.ParentID]; !ok {
			return fmt.Errorf("%w: %s -> %s", ErrConfigDanglingParent, cfg.ID, cfg.ParentID)
		}
	}

	followChildren := make(map[string][]string)
	for _, id := range ids {
		cfg := merged[id]
		if cfg.HasParent() && cfg.Strategy == model.StrategyFollowParent {
			followChildren[cfg.ParentID] = append(followChildren[cfg.ParentID], cfg.ID)
		}
	}

	for _, cfg := range configs {
		if _, exists := e.states[cfg.ID]; !exists {
			e.states[cfg.ID] = model.DefaultState()
		}
	}
	e.configs = merged
	e.followChildren = followChildren

	return nil
}

// HandleEvent is the engine's sole entry point for externally observed
// occupancy events. An event targeting an unconfigured location is logged
// and ignored, never returned as an error.
func (e *Engine) HandleEvent(event model.OccupancyEvent, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.configs[event.LocationID]
	if !ok {
		e.logger.Warn("event targets unknown location", map[string]any{
			"location_id": event.LocationID,
			"event_kind":  string(event.Kind),
		})
		e.metrics.EventOutcome(event.Kind, "unknown_location")
		return Result{NextExpiration: e.nextExpirationLocked()}
	}

	reason := model.ReasonEvent
	if event.Kind == model.EventPropagated {
		reason = model.ReasonPropagated
	}

	changed, tr := e.evaluateLocked(cfg, &event, now, reason)
	var collected []model.StateTransition
	if !changed {
		e.metrics.EventOutcome(event.Kind, "no_change")
		return Result{NextExpiration: e.nextExpirationLocked()}
	}

	collected = append(collected, tr)
	e.metrics.EventOutcome(event.Kind, "accepted")
	collected = append(collected, e.propagate(cfg.ID, now)...)

	return Result{Transitions: collected, NextExpiration: e.nextExpirationLocked()}
}

var fallbackIDCounter uint64

// defaultIDGenerator is used only when the caller does not supply
// WithIDGenerator. It never reads the wall clock, keeping the package free
// of hidden time sources; cmd/occupancyd installs a uuid-backed generator
// in production.
func defaultIDGenerator() string {
	n := atomic.AddUint64(&fallbackIDCounter, 1)
	return fmt.Sprintf("tr-%d", n)
}
