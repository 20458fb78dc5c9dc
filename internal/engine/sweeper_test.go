// SPDX-License-Identifier: MIT

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/occupancy/engine/internal/model"
)

func TestCheckTimeouts_SkipsLockedFrozenLocations(t *testing.T) {
	cfg := model.LocationConfig{ID: "vault", Timeouts: map[string]time.Duration{"default": time.Minute}}
	e := newTestEngine(t, cfg)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e.HandleEvent(model.OccupancyEvent{LocationID: "vault", Kind: model.EventMomentary, Timestamp: at}, at)
	e.HandleEvent(model.OccupancyEvent{LocationID: "vault", Kind: model.EventLockChange, Timestamp: at}, at)

	before, _ := e.LocationState("vault")
	require.Equal(t, model.LockLockedFrozen, before.LockState)

	res := e.CheckTimeouts(at.Add(24 * time.Hour))
	for _, tr := range res.Transitions {
		require.NotEqual(t, "vault", tr.LocationID, "a locked location's timer must be frozen")
	}

	after, _ := e.LocationState("vault")
	require.Equal(t, before.OccupiedUntil, after.OccupiedUntil)
}

func TestCheckTimeouts_CorrectsFollowParentSweptBeforeParent(t *testing.T) {
	// Both main_floor and living_room have timers expiring at the same
	// instant; whichever map-iteration order the sweeper's main pass
	// visits them in, the downward correction pass must still leave
	// living_room vacant once main_floor has expired.
	configs := []model.LocationConfig{
		{ID: "main_floor", Strategy: model.StrategyIndependent, Timeouts: map[string]time.Duration{"default": time.Minute}},
		{
			ID: "living_room", ParentID: "main_floor", Strategy: model.StrategyFollowParent,
			ContributesToParent: true, Timeouts: map[string]time.Duration{"default": time.Minute},
		},
	}
	e := newTestEngine(t, configs...)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e.HandleEvent(model.OccupancyEvent{LocationID: "main_floor", Kind: model.EventMomentary, Timestamp: at}, at)

	living, _ := e.LocationState("living_room")
	require.True(t, living.IsOccupied)

	e.CheckTimeouts(at.Add(2 * time.Minute))

	main, _ := e.LocationState("main_floor")
	require.False(t, main.IsOccupied)
	living, _ = e.LocationState("living_room")
	require.False(t, living.IsOccupied, "living_room must not remain occupied once its parent's occupancy has expired")
}

func TestCheckTimeouts_NoChangeYieldsNoTransitions(t *testing.T) {
	e := newTestEngine(t, kitchenConfig())
	res := e.CheckTimeouts(time.Now().UTC())
	require.Empty(t, res.Transitions)
}
