// SPDX-License-Identifier: MIT

package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/occupancy/engine/internal/metrics"
	"github.com/occupancy/engine/internal/model"
)

func TestRecordTransitionOTel_IncrementsCounter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	defer otel.SetMeterProvider(prev)

	metrics.RecordTransitionOTel(context.Background(), "kitchen", model.ReasonEvent)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "occupancy_transitions_total" {
				found = true
			}
		}
	}
	require.True(t, found, "expected occupancy_transitions_total to be recorded")
}
