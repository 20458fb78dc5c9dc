// SPDX-License-Identifier: MIT

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/occupancy/engine/internal/model"
)

func TestReconfigure_AddsNewLocationAtDefaultState(t *testing.T) {
	e := newTestEngine(t, kitchenConfig())

	err := e.Reconfigure([]model.LocationConfig{{ID: "hallway", ParentID: "", Strategy: model.StrategyIndependent}})
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"kitchen", "hallway"}, e.Locations())
	st, ok := e.LocationState("hallway")
	require.True(t, ok)
	require.True(t, st.IsDefault())
}

func TestReconfigure_PreservesStateOfExistingLocation(t *testing.T) {
	e := newTestEngine(t, kitchenConfig())
	at := clockTime(12, 0)
	e.HandleEvent(model.OccupancyEvent{LocationID: "kitchen", Kind: model.EventMomentary, Category: "motion", Timestamp: at}, at)

	before, _ := e.LocationState("kitchen")
	require.True(t, before.IsOccupied)

	updated := kitchenConfig()
	updated.Timeouts["motion"] = 20 * time.Minute
	err := e.Reconfigure([]model.LocationConfig{updated})
	require.NoError(t, err)

	after, _ := e.LocationState("kitchen")
	require.Equal(t, before.IsOccupied, after.IsOccupied)
	require.True(t, before.OccupiedUntil.Equal(*after.OccupiedUntil), "reconfiguring must not disturb existing runtime state")
}

func TestReconfigure_RejectsDanglingParentAndLeavesEngineUntouched(t *testing.T) {
	e := newTestEngine(t, kitchenConfig())

	err := e.Reconfigure([]model.LocationConfig{{ID: "pantry", ParentID: "missing"}})
	require.ErrorIs(t, err, ErrConfigDanglingParent)
	require.ElementsMatch(t, []string{"kitchen"}, e.Locations())
}

func TestConstruct_InitialStateAllDefault(t *testing.T) {
	e := newTestEngine(t, kitchenConfig(), model.LocationConfig{ID: "hallway"})
	for _, id := range e.Locations() {
		st, ok := e.LocationState(id)
		require.True(t, ok)
		require.True(t, st.IsDefault())
	}
}
