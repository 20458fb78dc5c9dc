// SPDX-License-Identifier: MIT

package engine

import (
	"time"

	"github.com/occupancy/engine/internal/model"
)

// evaluateLocked runs the single-location step: lock gate, candidate-next
// computation, occupancy derivation, vacancy scrub, and commit. It must be
// called with e.mu held. event is nil for a timeout sweep or a
// follow-parent re-evaluation tick. reason classifies the resulting
// transition and is supplied by the caller rather than inferred, since a
// nil event is ambiguous between "timeout" and "propagated" (a downward
// follow-parent tick).
func (e *Engine) evaluateLocked(cfg model.LocationConfig, event *model.OccupancyEvent, now time.Time, reason model.TransitionReason) (bool, model.StateTransition) {
	cur := e.states[cfg.ID]

	// A. Lock gate.
	if cur.LockState == model.LockLockedFrozen {
		if event == nil {
			return false, model.StateTransition{}
		}
		if event.Kind != model.EventManual && event.Kind != model.EventLockChange {
			return false, model.StateTransition{}
		}
	}

	next := cur.Clone()
	hadHolds := len(cur.ActiveHolds) > 0

	if event != nil {
		if event.Kind == model.EventLockChange {
			if next.LockState == model.LockLockedFrozen {
				next.LockState = model.LockUnlocked
			} else {
				next.LockState = model.LockLockedFrozen
			}
		}

		// Only sustained-presence event kinds earn a durable entry in
		// ActiveOccupants. A MOMENTARY pulse's occupant_id is not
		// recorded anywhere: it must not outlive the event itself, or
		// the identity haunts the location
		// indefinitely once its own timer has nothing left to remove it
		// ("Ghost Mike": a motion pulse's identity tag must fade with
		// its timer, not block vacancy forever).
		if event.HasOccupant() {
			switch event.Kind {
			case model.EventHoldEnd:
				next.ActiveOccupants = model.SetWithout(next.ActiveOccupants, event.OccupantID)
			case model.EventHoldStart, model.EventManual:
				next.ActiveOccupants = model.SetWith(next.ActiveOccupants, event.OccupantID)
			}
		}

		switch event.Kind {
		case model.EventHoldStart:
			next.ActiveHolds = model.SetWith(next.ActiveHolds, event.SourceID)
		case model.EventHoldEnd:
			next.ActiveHolds = model.SetWithout(next.ActiveHolds, event.SourceID)
		}

		switch event.Kind {
		case model.EventMomentary, model.EventManual, model.EventPropagated:
			delta := resolveDuration(cfg, event)
			base := event.Timestamp
			if event.Kind == model.EventPropagated {
				base = now
			}
			candidate := base.Add(delta)
			next.OccupiedUntil = maxTime(next.OccupiedUntil, &candidate)
		case model.EventHoldEnd:
			if hadHolds && len(next.ActiveHolds) == 0 {
				delta := resolveDuration(cfg, event)
				candidate := event.Timestamp.Add(delta)
				next.OccupiedUntil = &candidate
			}
		}
	}

	// C. Occupancy derivation, including follow-parent inheritance.
	followOccupied := false
	if cfg.Strategy == model.StrategyFollowParent && cfg.HasParent() {
		if parentState, ok := e.states[cfg.ParentID]; ok && parentState.IsOccupied {
			followOccupied = true
			if parentState.IsHeld() {
				next.OccupiedUntil = nil
			}
		}
	}
	next.IsOccupied = (next.OccupiedUntil != nil && next.OccupiedUntil.After(now)) ||
		len(next.ActiveHolds) > 0 ||
		len(next.ActiveOccupants) > 0 ||
		followOccupied

	// I3: a live hold or identity always means an indefinite timer, even
	// if this same step also computed a concrete candidate (e.g. a
	// PROPAGATED re-check arriving at a location already held some other
	// way). Without this, an upward propagation hop that lands on an
	// already-held parent would inject a spurious expiring timer instead
	// of correctly seeing no real change and halting.
	if len(next.ActiveHolds) > 0 || len(next.ActiveOccupants) > 0 {
		next.OccupiedUntil = nil
	}

	// D. Vacancy scrub.
	if !next.IsOccupied {
		next.ActiveOccupants = nil
		next.ActiveHolds = nil
		next.OccupiedUntil = nil
	}

	// E. Commit.
	if statesEqual(cur, next) {
		return false, model.StateTransition{}
	}
	e.states[cfg.ID] = next
	e.metrics.TransitionCommitted(cfg.ID, reason)

	return true, model.StateTransition{
		ID:         e.nextID(),
		LocationID: cfg.ID,
		Previous:   cur,
		New:        next,
		Reason:     reason,
		At:         now,
	}
}

// resolveDuration implements §4.1 rule B.4: an explicit event.Duration
// wins outright; otherwise the location's per-category timeout table is
// consulted with the category/default/ultimate-default fallback chain.
func resolveDuration(cfg model.LocationConfig, event *model.OccupancyEvent) time.Duration {
	if event.Duration != nil {
		return *event.Duration
	}
	return cfg.TimeoutFor(event.Category)
}

// maxTime treats a nil pointer as -infinity, so an absent timer is always
// replaced by a concrete candidate, and an existing timer is never
// shrunk by a later one.
func maxTime(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.After(*a) {
		return b
	}
	return a
}

func statesEqual(a, b model.LocationRuntimeState) bool {
	if a.IsOccupied != b.IsOccupied || a.LockState != b.LockState {
		return false
	}
	if !timeEqual(a.OccupiedUntil, b.OccupiedUntil) {
		return false
	}
	return setEqual(a.ActiveOccupants, b.ActiveOccupants) && setEqual(a.ActiveHolds, b.ActiveHolds)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !model.SetHas(b, k) {
			return false
		}
	}
	return true
}
