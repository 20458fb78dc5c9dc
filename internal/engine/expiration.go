// SPDX-License-Identifier: MIT

package engine

import (
	"time"

	"github.com/occupancy/engine/internal/model"
)

// nextExpirationLocked implements §4.4: the earliest OccupiedUntil among
// locations with no live hold or occupant. A LOCKED_FROZEN location's
// timer is frozen and CheckTimeouts always skips it, so it is excluded
// here too — including it would only ever produce a wakeup the sweeper
// discards on arrival.
func (e *Engine) nextExpirationLocked() *time.Time {
	var earliest *time.Time
	for _, st := range e.states {
		if st.LockState == model.LockLockedFrozen {
			continue
		}
		if st.IsHeld() {
			continue
		}
		if st.OccupiedUntil == nil {
			continue
		}
		if earliest == nil || st.OccupiedUntil.Before(*earliest) {
			earliest = st.OccupiedUntil
		}
	}
	return earliest
}

// NextExpiration reports the current earliest pending wakeup without
// performing any evaluation, for callers that want to schedule a timer
// without also forcing a sweep (e.g. right after a config reload).
func (e *Engine) NextExpiration() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextExpirationLocked()
}
