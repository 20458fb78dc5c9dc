// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldLocationID      = "location_id"
	FieldParentID        = "parent_id"
	FieldCorrelationID   = "correlation_id"
	FieldRequestID       = "request_id"
	FieldClientRequestID = "client_request_id"
	FieldTickID          = "tick_id"
	FieldTransitionID    = "transition_id"
	FieldSourceID        = "source_id"
	FieldOccupantID      = "occupant_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Occupancy domain fields
	FieldEventKind = "event_kind"
	FieldCategory  = "category"
	FieldReason    = "reason"
	FieldRule      = "rule"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
