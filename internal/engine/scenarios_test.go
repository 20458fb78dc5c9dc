// SPDX-License-Identifier: MIT

// Scenarios discovered empirically while hardening the evaluator against
// the easy ways these rules compose wrong: a pulse's identity outliving
// its own timer, a longer hold getting clobbered by a shorter one, an
// isolated sub-location leaking into its container, a locked floor still
// deriving occupancy for its followers.
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/occupancy/engine/internal/model"
)

func clockTime(hh, mm int) time.Time {
	return time.Date(2026, 1, 1, hh, mm, 0, 0, time.UTC)
}

func TestScenario_BasicPulse(t *testing.T) {
	cfg := model.LocationConfig{ID: "kitchen", Timeouts: map[string]time.Duration{"motion": 10 * time.Minute}}
	e := newTestEngine(t, cfg)

	at := clockTime(12, 0)
	res := e.HandleEvent(model.OccupancyEvent{LocationID: "kitchen", Kind: model.EventMomentary, Category: "motion", SourceID: "pir", Timestamp: at}, at)

	st, _ := e.LocationState("kitchen")
	require.True(t, st.IsOccupied)
	require.True(t, st.OccupiedUntil.Equal(clockTime(12, 10)))
	require.NotNil(t, res.NextExpiration)
	require.True(t, res.NextExpiration.Equal(clockTime(12, 10)))
}

func TestScenario_SaunaTimerDoesNotShrink(t *testing.T) {
	cfg := model.LocationConfig{ID: "sauna", Timeouts: map[string]time.Duration{"manual": 60 * time.Minute, "motion": 10 * time.Minute}}
	e := newTestEngine(t, cfg)

	manualDuration := 60 * time.Minute
	e.HandleEvent(model.OccupancyEvent{
		LocationID: "sauna", Kind: model.EventManual, Category: "manual", SourceID: "switch",
		Timestamp: clockTime(12, 0), Duration: &manualDuration,
	}, clockTime(12, 0))

	e.HandleEvent(model.OccupancyEvent{
		LocationID: "sauna", Kind: model.EventMomentary, Category: "motion", SourceID: "pir", Timestamp: clockTime(12, 5),
	}, clockTime(12, 5))

	st, _ := e.LocationState("sauna")
	require.True(t, st.OccupiedUntil.Equal(clockTime(13, 0)), "a shorter pulse must never shrink an existing longer timer")
}

func TestScenario_GhostMike(t *testing.T) {
	cfg := model.LocationConfig{ID: "kitchen", Timeouts: map[string]time.Duration{"motion": 10 * time.Minute}}
	e := newTestEngine(t, cfg)

	e.HandleEvent(model.OccupancyEvent{
		LocationID: "kitchen", Kind: model.EventMomentary, Category: "motion", SourceID: "pir",
		Timestamp: clockTime(12, 0), OccupantID: "mike",
	}, clockTime(12, 0))

	res := e.CheckTimeouts(clockTime(12, 11))

	var found bool
	for _, tr := range res.Transitions {
		if tr.LocationID == "kitchen" {
			found = true
			require.False(t, tr.New.IsOccupied)
			require.Empty(t, tr.New.ActiveOccupants)
			require.Nil(t, tr.New.OccupiedUntil)
		}
	}
	require.True(t, found, "kitchen's motion timer must elapse and take Mike's attribution with it")
}

func TestScenario_BackyardDeer(t *testing.T) {
	home := model.LocationConfig{ID: "home", Kind: model.KindVirtual, Strategy: model.StrategyIndependent}
	backyard := model.LocationConfig{
		ID: "backyard", ParentID: "home", ContributesToParent: false,
		Timeouts: map[string]time.Duration{"motion": 5 * time.Minute},
	}
	e := newTestEngine(t, home, backyard)

	at := clockTime(12, 0)
	res := e.HandleEvent(model.OccupancyEvent{LocationID: "backyard", Kind: model.EventMomentary, Category: "motion", SourceID: "pir", Timestamp: at}, at)

	for _, tr := range res.Transitions {
		require.NotEqual(t, "home", tr.LocationID, "an isolated sub-location must never emit a transition on its container")
	}
	backyardState, _ := e.LocationState("backyard")
	require.True(t, backyardState.IsOccupied)
	homeState, _ := e.LocationState("home")
	require.False(t, homeState.IsOccupied)
}

func TestScenario_PartyModeLock(t *testing.T) {
	configs := []model.LocationConfig{
		{ID: "home", Kind: model.KindVirtual, Strategy: model.StrategyIndependent, Timeouts: map[string]time.Duration{"propagated": 60 * time.Minute}},
		{
			ID: "main_floor", ParentID: "home", Kind: model.KindVirtual, Strategy: model.StrategyIndependent,
			ContributesToParent: true, Timeouts: map[string]time.Duration{"propagated": 60 * time.Minute},
		},
		{
			ID: "kitchen", ParentID: "main_floor", Kind: model.KindArea, Strategy: model.StrategyIndependent,
			ContributesToParent: true, Timeouts: map[string]time.Duration{"motion": 10 * time.Minute},
		},
		{
			ID: "living_room", ParentID: "main_floor", Kind: model.KindArea, Strategy: model.StrategyFollowParent,
			ContributesToParent: true,
		},
	}
	e := newTestEngine(t, configs...)

	e.HandleEvent(model.OccupancyEvent{LocationID: "kitchen", Kind: model.EventMomentary, Category: "motion", SourceID: "pir", Timestamp: clockTime(12, 0)}, clockTime(12, 0))
	e.HandleEvent(model.OccupancyEvent{LocationID: "main_floor", Kind: model.EventLockChange, Timestamp: clockTime(12, 0)}, clockTime(12, 0))
	e.CheckTimeouts(clockTime(12, 15))

	kitchen, _ := e.LocationState("kitchen")
	require.False(t, kitchen.IsOccupied, "kitchen's own 10-minute motion timer has elapsed by 12:15")

	mainFloor, _ := e.LocationState("main_floor")
	require.True(t, mainFloor.IsOccupied)
	require.Equal(t, model.LockLockedFrozen, mainFloor.LockState)

	livingRoom, _ := e.LocationState("living_room")
	require.True(t, livingRoom.IsOccupied, "living_room follows its locked-occupied parent")

	home, _ := e.LocationState("home")
	require.True(t, home.IsOccupied)
}

func TestScenario_IdentityDeparture(t *testing.T) {
	cfg := model.LocationConfig{ID: "kitchen"}
	e := newTestEngine(t, cfg)

	at := clockTime(12, 0)
	e.HandleEvent(model.OccupancyEvent{LocationID: "kitchen", Kind: model.EventHoldStart, Category: "presence", SourceID: "ble_mike", Timestamp: at, OccupantID: "mike"}, at)
	e.HandleEvent(model.OccupancyEvent{LocationID: "kitchen", Kind: model.EventHoldStart, Category: "presence", SourceID: "ble_marla", Timestamp: at, OccupantID: "marla"}, at)
	e.HandleEvent(model.OccupancyEvent{LocationID: "kitchen", Kind: model.EventHoldEnd, Category: "presence", SourceID: "ble_mike", Timestamp: at, OccupantID: "mike"}, at)

	st, _ := e.LocationState("kitchen")
	require.True(t, st.IsOccupied)
	require.Nil(t, st.OccupiedUntil)
	require.Len(t, st.ActiveOccupants, 1)
	require.True(t, model.SetHas(st.ActiveOccupants, "marla"))
	require.False(t, model.SetHas(st.ActiveOccupants, "mike"))
}
