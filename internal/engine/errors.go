// SPDX-License-Identifier: MIT

package engine

import "errors"

// Construction-time configuration errors. Construct returns these
// wrapped with the offending location id; it never panics on bad input.
var (
	ErrConfigDuplicateID    = errors.New("engine: duplicate location id")
	ErrConfigDanglingParent = errors.New("engine: parent_id references unknown location")
)

// ErrUnknownLocation classifies an event routed to a location id the
// engine has no config for. HandleEvent never returns it — an unknown
// location is logged and ignored, not surfaced as an error — it exists
// so callers can classify the outcome consistently when recording
// metrics or log fields.
var ErrUnknownLocation = errors.New("engine: unknown location")

// Snapshot restore defects. Restore never returns these to its caller —
// an unknown location or an unrecognized lock_state is logged as a
// warning and that entry skipped; nothing fails the whole restore.
// ErrSnapshotBadTimestamp is never produced: Restore receives decoded
// entries, and an entry whose timestamp does not parse already fails JSON
// decoding before Restore is called.
var (
	ErrSnapshotUnknownLocation = errors.New("engine: snapshot entry references unknown location")
	ErrSnapshotBadTimestamp    = errors.New("engine: snapshot entry has an unparseable timestamp")
	ErrSnapshotBadLockState    = errors.New("engine: snapshot entry has an unrecognized lock_state")
)

// ErrInvariantViolation names an internal invariant breach. The engine
// performs no run-time invariant check: nothing returns it, panics with
// it, or reports it through MetricsRecorder.InvariantViolation, and there
// is no separate debug build.
var ErrInvariantViolation = errors.New("engine: invariant violation")
