// SPDX-License-Identifier: MIT

package engine

import (
	"time"

	"github.com/occupancy/engine/internal/model"
)

// propagate runs the upward/downward cascade triggered by a committed
// change at rootID. It is an explicit breadth-first worklist rather than
// recursion, so a deep hierarchy cannot grow the call stack: each queue
// entry is a location that just committed a change, and for that location
// we first attempt the single upward hop to its parent, then the
// downward hop to its follow-parent children, queuing any further
// locations that themselves commit a change. Must be called with e.mu
// held.
func (e *Engine) propagate(rootID string, now time.Time) []model.StateTransition {
	var collected []model.StateTransition
	queue := []string{rootID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if childID, tr, ok := e.propagateUpwardOnce(id, now); ok {
			collected = append(collected, tr)
			queue = append(queue, childID)
		}

		for _, tr := range e.propagateDownwardOnce(id, now, &queue) {
			collected = append(collected, tr)
		}
	}

	return collected
}

// propagateUpwardOnce attempts the single upward hop from id to its
// parent, per §4.2: gated on a configured parent, ContributesToParent,
// and the child's new state being occupied or holding an identity.
// Vacancy never bubbles up. The synthetic PROPAGATED event uses now, not
// the originating event's timestamp, so re-timed propagation chains never
// compound stale timestamps.
func (e *Engine) propagateUpwardOnce(id string, now time.Time) (parentID string, tr model.StateTransition, changed bool) {
	cfg, ok := e.configs[id]
	if !ok || !cfg.HasParent() || !cfg.ContributesToParent {
		return "", model.StateTransition{}, false
	}
	state := e.states[id]
	if !state.IsOccupied && len(state.ActiveOccupants) == 0 {
		return "", model.StateTransition{}, false
	}

	parentCfg := e.configs[cfg.ParentID]
	synthetic := model.OccupancyEvent{
		LocationID: parentCfg.ID,
		Kind:       model.EventPropagated,
		Category:   model.PropagatedCategory,
		SourceID:   id,
		Timestamp:  now,
	}
	changed, tr = e.evaluateLocked(parentCfg, &synthetic, now, model.ReasonPropagated)
	if !changed {
		return "", model.StateTransition{}, false
	}
	return parentCfg.ID, tr, true
}

// propagateDownwardOnce re-evaluates every FOLLOW_PARENT child of id with
// a nil tick, queuing any child that itself commits a change.
func (e *Engine) propagateDownwardOnce(id string, now time.Time, queue *[]string) []model.StateTransition {
	var out []model.StateTransition
	for _, childID := range e.followChildren[id] {
		childCfg := e.configs[childID]
		changed, tr := e.evaluateLocked(childCfg, nil, now, model.ReasonPropagated)
		if !changed {
			continue
		}
		out = append(out, tr)
		*queue = append(*queue, childID)
	}
	return out
}
