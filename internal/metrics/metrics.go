// SPDX-License-Identifier: MIT

// Package metrics defines the Prometheus instrumentation exposed by the
// occupancy daemon and wires it into engine.MetricsRecorder.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/occupancy/engine/internal/model"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Name:      "transitions_total",
		Help:      "Committed state transitions, by location and reason.",
	}, []string{"location", "reason"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Name:      "events_total",
		Help:      "Ingested occupancy events, by kind and outcome.",
	}, []string{"kind", "outcome"})

	invariantViolationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "occupancy",
		Name:      "invariant_violation_total",
		Help:      "Internal invariant breaches caught at commit time, by rule.",
	}, []string{"rule"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "occupancy",
		Name:      "sweep_duration_seconds",
		Help:      "Wall-clock time spent in one CheckTimeouts pass.",
		Buckets:   prometheus.DefBuckets,
	})

	activeGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "occupancy",
		Name:      "active_gauge",
		Help:      "1 if a location is currently occupied, 0 otherwise.",
	}, []string{"location"})

	nextExpirationSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "occupancy",
		Name:      "next_expiration_seconds",
		Help:      "Unix timestamp of the next scheduled timeout wakeup, or 0 if none is pending.",
	})
)

// Recorder implements engine.MetricsRecorder against the package's
// promauto collectors. It carries no state of its own; a single package
// level instance is shared by every Engine in the process, matching how
// promauto collectors are process-global by construction.
type Recorder struct{}

// NewRecorder returns the shared Prometheus-backed MetricsRecorder.
func NewRecorder() Recorder { return Recorder{} }

func (Recorder) TransitionCommitted(locationID string, reason model.TransitionReason) {
	transitionsTotal.WithLabelValues(locationID, string(reason)).Inc()
	RecordTransitionOTel(context.Background(), locationID, reason)
}

func (Recorder) EventOutcome(kind model.EventKind, outcome string) {
	eventsTotal.WithLabelValues(string(kind), outcome).Inc()
	RecordEventOutcomeOTel(context.Background(), kind, outcome)
}

func (Recorder) InvariantViolation(rule string) {
	invariantViolationTotal.WithLabelValues(rule).Inc()
}

func (Recorder) SweepDuration(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}

// SetActive reports whether locationID is currently occupied, called by
// the host after every engine operation for the locations that changed.
func SetActive(locationID string, occupied bool) {
	v := 0.0
	if occupied {
		v = 1.0
	}
	activeGauge.WithLabelValues(locationID).Set(v)
}

// SetNextExpiration reports the next scheduled wakeup, or zero if none is
// pending.
func SetNextExpiration(next *time.Time) {
	if next == nil {
		nextExpirationSeconds.Set(0)
		return
	}
	nextExpirationSeconds.Set(float64(next.Unix()))
}
