// SPDX-License-Identifier: MIT

package engine

import (
	"time"

	"github.com/occupancy/engine/internal/model"
)

// SnapshotEntry is the plain, JSON-serialisable attribute bag exchanged
// with a SnapshotStore backend. OccupiedUntil marshals to an ISO-8601
// string or null via time.Time's standard JSON codec.
type SnapshotEntry struct {
	IsOccupied      bool            `json:"is_occupied"`
	OccupiedUntil   *time.Time      `json:"occupied_until"`
	ActiveOccupants []string        `json:"active_occupants"`
	ActiveHolds     []string        `json:"active_holds"`
	LockState       model.LockState `json:"lock_state"`
}

// Export yields one SnapshotEntry per location whose state differs from
// model.DefaultState(), per §4.5 — a freshly constructed engine that has
// seen no events exports an empty map.
func (e *Engine) Export() map[string]SnapshotEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]SnapshotEntry)
	for id, st := range e.states {
		if st.IsDefault() {
			continue
		}
		out[id] = SnapshotEntry{
			IsOccupied:      st.IsOccupied,
			OccupiedUntil:   copyTime(st.OccupiedUntil),
			ActiveOccupants: setToSlice(st.ActiveOccupants),
			ActiveHolds:     setToSlice(st.ActiveHolds),
			LockState:       st.LockState,
		}
	}
	return out
}

// Restore replaces runtime state for every location named in snapshot,
// applying the stale-data defence rules R-A through R-D in order, per
// §4.5. Each location is judged independently on its own entry — there is
// no whole-snapshot age gate, so a LOCKED_FROZEN entry restores verbatim
// (R-A) no matter how old the snapshot blob itself is. maxAge is accepted
// for parity with the documented signature but, like the upstream
// restore_state's own max_age_minutes, it names a per-entry staleness
// budget already implied by R-C's "occupied_until < now" check rather
// than a knob this function reads directly. Unknown location ids are
// ignored. An entry with an unrecognized lock_state is skipped entirely.
// Restore never fails: defects are logged and the offending entry is
// skipped or coerced.
func (e *Engine) Restore(snapshot map[string]SnapshotEntry, now time.Time, maxAge time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, entry := range snapshot {
		cfg, ok := e.configs[id]
		if !ok {
			e.logger.Warn(ErrSnapshotUnknownLocation.Error(), map[string]any{"location_id": id})
			continue
		}

		if entry.LockState != model.LockUnlocked && entry.LockState != model.LockLockedFrozen {
			e.logger.Warn(ErrSnapshotBadLockState.Error(), map[string]any{
				"location_id": id,
				"lock_state":  string(entry.LockState),
			})
			continue
		}

		occupiedUntil := copyTime(entry.OccupiedUntil)

		switch {
		case entry.LockState == model.LockLockedFrozen:
			// R-A: locked state is timeless, restored verbatim regardless
			// of how stale its timer looks.
			e.states[cfg.ID] = model.LocationRuntimeState{
				IsOccupied:      entry.IsOccupied,
				OccupiedUntil:   occupiedUntil,
				ActiveOccupants: sliceToSet(entry.ActiveOccupants),
				ActiveHolds:     sliceToSet(entry.ActiveHolds),
				LockState:       entry.LockState,
			}

		case len(entry.ActiveOccupants) > 0 || len(entry.ActiveHolds) > 0:
			// R-B: a live identity or hold overrides any stored timer —
			// the location is occupied with no timer, matching I3.
			e.states[cfg.ID] = model.LocationRuntimeState{
				IsOccupied:      true,
				OccupiedUntil:   nil,
				ActiveOccupants: sliceToSet(entry.ActiveOccupants),
				ActiveHolds:     sliceToSet(entry.ActiveHolds),
				LockState:       entry.LockState,
			}

		case occupiedUntil != nil && occupiedUntil.Before(now):
			// R-C: the stored timer has already elapsed, so the location
			// is restored vacant rather than resurrecting a stale timer.
			e.states[cfg.ID] = model.DefaultState()

		default:
			// R-D: fresh data, restored verbatim.
			e.states[cfg.ID] = model.LocationRuntimeState{
				IsOccupied:      entry.IsOccupied,
				OccupiedUntil:   occupiedUntil,
				ActiveOccupants: nil,
				ActiveHolds:     nil,
				LockState:       entry.LockState,
			}
		}
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func setToSlice(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func sliceToSet(in []string) map[string]struct{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(in))
	for _, k := range in {
		out[k] = struct{}{}
	}
	return out
}
