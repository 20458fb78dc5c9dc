// SPDX-License-Identifier: MIT

package engine

import (
	"time"

	"github.com/occupancy/engine/internal/model"
)

// CheckTimeouts applies a nil event to every location that is not
// LOCKED_FROZEN, letting §4.1's occupancy derivation and vacancy scrub
// retire any timer that has elapsed by now. A location whose timer has
// not elapsed, or which has a live hold or occupant, is left untouched.
//
// Map iteration order is unspecified, so a FOLLOW_PARENT child may be
// swept before its parent within the same pass and briefly read a
// not-yet-updated parent state; the subsequent downward re-evaluation
// pass corrects this by re-running every changed parent's follow-parent
// children against the now-final parent state.
func (e *Engine) CheckTimeouts(now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var collected []model.StateTransition
	var changedParents []string

	for id, cfg := range e.configs {
		cur := e.states[id]
		if cur.LockState == model.LockLockedFrozen {
			continue
		}
		changed, tr := e.evaluateLocked(cfg, nil, now, model.ReasonTimeout)
		if !changed {
			continue
		}
		collected = append(collected, tr)
		changedParents = append(changedParents, id)
	}

	queue := append([]string{}, changedParents...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		collected = append(collected, e.propagateDownwardOnce(id, now, &queue)...)
	}

	return Result{Transitions: collected, NextExpiration: e.nextExpirationLocked()}
}
