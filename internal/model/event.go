// SPDX-License-Identifier: MIT

package model

import "time"

// EventKind is the kind of occupancy event accepted by the evaluator.
type EventKind string

const (
	EventMomentary   EventKind = "MOMENTARY"
	EventHoldStart   EventKind = "HOLD_START"
	EventHoldEnd     EventKind = "HOLD_END"
	EventManual      EventKind = "MANUAL"
	EventLockChange  EventKind = "LOCK_CHANGE"
	EventPropagated  EventKind = "PROPAGATED"
)

// OccupancyEvent is an immutable occupancy observation targeting one
// location.
type OccupancyEvent struct {
	LocationID string
	Kind       EventKind
	Category   string
	SourceID   string
	Timestamp  time.Time
	OccupantID string         // optional
	Duration   *time.Duration // optional, overrides category lookup
}

// HasOccupant reports whether this event carries an identity.
func (e OccupancyEvent) HasOccupant() bool {
	return e.OccupantID != ""
}

// TransitionReason classifies why a StateTransition was emitted.
type TransitionReason string

const (
	ReasonEvent      TransitionReason = "event"
	ReasonTimeout    TransitionReason = "timeout"
	ReasonPropagated TransitionReason = "propagated"
)

// StateTransition records one committed change to a location's runtime
// state, as emitted by the evaluator.
type StateTransition struct {
	ID         string
	LocationID string
	Previous   LocationRuntimeState
	New        LocationRuntimeState
	Reason     TransitionReason
	At         time.Time
}
