// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/occupancy/engine/internal/engine"
	"github.com/occupancy/engine/internal/model"
)

func newTestServer(t *testing.T, now time.Time) *Server {
	t.Helper()
	eng, err := engine.Construct([]model.LocationConfig{
		{ID: "kitchen", Strategy: model.StrategyIndependent, Timeouts: map[string]time.Duration{"motion": 10 * time.Minute}},
	})
	require.NoError(t, err)
	return New(eng, WithClock(func() time.Time { return now }))
}

func TestHandlePostEvent_StartsTimerAndReturnsTransition(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)

	body, _ := json.Marshal(eventRequest{LocationID: "kitchen", Kind: string(model.EventMomentary), Category: "motion"})
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result resultResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Len(t, result.Transitions, 1)
	require.True(t, result.Transitions[0].New.IsOccupied)
}

func TestHandlePostEvent_RejectsMissingFields(t *testing.T) {
	s := newTestServer(t, time.Now())

	body, _ := json.Marshal(eventRequest{LocationID: "kitchen"})
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetLocation_UnknownReturnsNotFound(t *testing.T) {
	s := newTestServer(t, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/v1/locations/attic", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetLocation_ReturnsCurrentState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)

	body, _ := json.Marshal(eventRequest{LocationID: "kitchen", Kind: string(model.EventMomentary), Category: "motion"})
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest(http.MethodGet, "/v1/locations/kitchen", nil)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	var st stateResponse
	require.NoError(t, json.NewDecoder(rec2.Body).Decode(&st))
	require.True(t, st.IsOccupied)
}

func TestHandleCheckTimeouts_ScrubsExpiredLocation(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)

	body, _ := json.Marshal(eventRequest{LocationID: "kitchen", Kind: string(model.EventMomentary), Category: "motion"})
	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body))
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	later := now.Add(11 * time.Minute)
	s.clock = func() time.Time { return later }

	req2 := httptest.NewRequest(http.MethodPost, "/v1/timeouts/check", nil)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusOK, rec2.Code)
	var result resultResponse
	require.NoError(t, json.NewDecoder(rec2.Body).Decode(&result))
	require.Len(t, result.Transitions, 1)
	require.False(t, result.Transitions[0].New.IsOccupied)
}

func TestHandleSnapshotRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)

	body, _ := json.Marshal(eventRequest{LocationID: "kitchen", Kind: string(model.EventMomentary), Category: "motion"})
	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader(body)))

	getReq := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var snap snapshotRequest
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&snap))
	require.Contains(t, snap.Entries, "kitchen")

	fresh := newTestServer(t, now)
	restoreBody, _ := json.Marshal(snap)
	restoreReq := httptest.NewRequest(http.MethodPost, "/v1/snapshot/restore", bytes.NewReader(restoreBody))
	restoreRec := httptest.NewRecorder()
	fresh.Handler().ServeHTTP(restoreRec, restoreReq)
	require.Equal(t, http.StatusNoContent, restoreRec.Code)

	st, ok := fresh.engine.LocationState("kitchen")
	require.True(t, ok)
	require.True(t, st.IsOccupied)
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(t, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
