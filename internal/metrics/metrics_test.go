// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/occupancy/engine/internal/model"
)

func gaugeVecValue(t *testing.T, gv *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, gv.WithLabelValues(labels...).Write(m))
	return m.GetGauge().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func counterVecValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, cv.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func TestSetActive_TogglesGaugeByLocation(t *testing.T) {
	SetActive("kitchen", true)
	require.Equal(t, 1.0, gaugeVecValue(t, activeGauge, "kitchen"))

	SetActive("kitchen", false)
	require.Equal(t, 0.0, gaugeVecValue(t, activeGauge, "kitchen"))
}

func TestSetNextExpiration_ZeroWhenNil(t *testing.T) {
	SetNextExpiration(nil)
	require.Equal(t, 0.0, gaugeValue(t, nextExpirationSeconds))

	next := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	SetNextExpiration(&next)
	require.Equal(t, float64(next.Unix()), gaugeValue(t, nextExpirationSeconds))
}

func TestRecorder_TransitionCommitted_IncrementsCounter(t *testing.T) {
	r := NewRecorder()
	before := counterVecValue(t, transitionsTotal, "hallway", string(model.ReasonEvent))
	r.TransitionCommitted("hallway", model.ReasonEvent)
	require.Equal(t, before+1, counterVecValue(t, transitionsTotal, "hallway", string(model.ReasonEvent)))
}

func TestRecorder_InvariantViolation_IncrementsCounter(t *testing.T) {
	r := NewRecorder()
	before := counterVecValue(t, invariantViolationTotal, "no-negative-timers")
	r.InvariantViolation("no-negative-timers")
	require.Equal(t, before+1, counterVecValue(t, invariantViolationTotal, "no-negative-timers"))
}
