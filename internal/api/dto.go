// SPDX-License-Identifier: MIT

// Package api is the HTTP surface fronting one engine.Engine: the
// concrete "host" the core model assumes exists but leaves unspecified.
// Every handler that needs `now` reads it from the server's Clock and
// forwards it to the engine as an explicit argument, keeping the engine
// itself pure.
package api

import (
	"sort"
	"time"

	"github.com/occupancy/engine/internal/engine"
	"github.com/occupancy/engine/internal/model"
)

// eventRequest is the wire shape of POST /v1/events. Timestamp defaults
// to the server's receive time when omitted, matching a sensor that has
// no clock of its own.
type eventRequest struct {
	LocationID string     `json:"location_id"`
	Kind       string     `json:"kind"`
	Category   string     `json:"category,omitempty"`
	SourceID   string     `json:"source_id,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	OccupantID string     `json:"occupant_id,omitempty"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
}

func (r eventRequest) toEvent(receivedAt time.Time) model.OccupancyEvent {
	ts := receivedAt
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	var dur *time.Duration
	if r.DurationMS != nil {
		d := time.Duration(*r.DurationMS) * time.Millisecond
		dur = &d
	}
	return model.OccupancyEvent{
		LocationID: r.LocationID,
		Kind:       model.EventKind(r.Kind),
		Category:   r.Category,
		SourceID:   r.SourceID,
		Timestamp:  ts,
		OccupantID: r.OccupantID,
		Duration:   dur,
	}
}

// stateResponse is the wire shape of a LocationRuntimeState.
type stateResponse struct {
	LocationID      string          `json:"location_id"`
	IsOccupied      bool            `json:"is_occupied"`
	OccupiedUntil   *time.Time      `json:"occupied_until"`
	ActiveOccupants []string        `json:"active_occupants"`
	ActiveHolds     []string        `json:"active_holds"`
	LockState       model.LockState `json:"lock_state"`
}

func toStateResponse(id string, s model.LocationRuntimeState) stateResponse {
	return stateResponse{
		LocationID:      id,
		IsOccupied:      s.IsOccupied,
		OccupiedUntil:   s.OccupiedUntil,
		ActiveOccupants: setToSortedSlice(s.ActiveOccupants),
		ActiveHolds:     setToSortedSlice(s.ActiveHolds),
		LockState:       s.LockState,
	}
}

// transitionResponse is the wire shape of one model.StateTransition.
type transitionResponse struct {
	ID         string                  `json:"id"`
	LocationID string                  `json:"location_id"`
	Previous   stateResponse           `json:"previous"`
	New        stateResponse           `json:"new"`
	Reason     model.TransitionReason  `json:"reason"`
	At         time.Time               `json:"at"`
}

func toTransitionResponse(tr model.StateTransition) transitionResponse {
	return transitionResponse{
		ID:         tr.ID,
		LocationID: tr.LocationID,
		Previous:   toStateResponse(tr.LocationID, tr.Previous),
		New:        toStateResponse(tr.LocationID, tr.New),
		Reason:     tr.Reason,
		At:         tr.At,
	}
}

// resultResponse is the wire shape of engine.Result.
type resultResponse struct {
	Transitions    []transitionResponse `json:"transitions"`
	NextExpiration *time.Time           `json:"next_expiration"`
}

func toResultResponse(r engine.Result) resultResponse {
	out := resultResponse{NextExpiration: r.NextExpiration}
	for _, tr := range r.Transitions {
		out.Transitions = append(out.Transitions, toTransitionResponse(tr))
	}
	return out
}

// snapshotRequest is the wire shape of both GET /v1/snapshot and POST
// /v1/snapshot/restore: the exported entries plus the instant they were
// captured. SavedAt is diagnostic only — Restore judges staleness per
// entry against its own occupied_until, not against when the snapshot
// blob itself was written — but callers still want it for logging and
// for deciding whether a payload is worth restoring at all.
type snapshotRequest struct {
	SavedAt time.Time                       `json:"saved_at"`
	Entries map[string]engine.SnapshotEntry `json:"entries"`
}

func setToSortedSlice(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
