// SPDX-License-Identifier: MIT

package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/occupancy/engine/internal/model"
)

// meter is looked up at call time rather than cached at init, so a
// meter provider installed after this package's vars run (telemetry.NewProvider
// runs during daemon startup, after package init) is still honored.
func meter() metric.Meter {
	return otel.GetMeterProvider().Meter("occupancy.engine")
}

// RecordTransitionOTel mirrors TransitionCommitted onto the OTel metrics
// pipeline, for deployments scraping via an OTLP collector instead of
// (or alongside) the Prometheus /metrics endpoint.
func RecordTransitionOTel(ctx context.Context, locationID string, reason model.TransitionReason) {
	counter, err := meter().Int64Counter("occupancy_transitions_total",
		metric.WithDescription("Committed state transitions, by location and reason."))
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("location", locationID),
		attribute.String("reason", string(reason)),
	))
}

// RecordEventOutcomeOTel mirrors EventOutcome onto the OTel metrics pipeline.
func RecordEventOutcomeOTel(ctx context.Context, kind model.EventKind, outcome string) {
	counter, err := meter().Int64Counter("occupancy_events_total",
		metric.WithDescription("Ingested occupancy events, by kind and outcome."))
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}
