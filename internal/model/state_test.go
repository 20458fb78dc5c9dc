// SPDX-License-Identifier: MIT

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultState_IsDefault(t *testing.T) {
	require.True(t, DefaultState().IsDefault())
}

func TestIsDefault_FalseWhenOccupied(t *testing.T) {
	until := time.Now().Add(time.Minute)
	s := LocationRuntimeState{IsOccupied: true, OccupiedUntil: &until, LockState: LockUnlocked}
	require.False(t, s.IsDefault())
}

func TestIsDefault_FalseWhenLocked(t *testing.T) {
	s := DefaultState()
	s.LockState = LockLockedFrozen
	require.False(t, s.IsDefault())
}

func TestIsHeld(t *testing.T) {
	require.False(t, DefaultState().IsHeld())

	withHold := DefaultState()
	withHold.ActiveHolds = map[string]struct{}{"couch-sensor": {}}
	require.True(t, withHold.IsHeld())

	withOccupant := DefaultState()
	withOccupant.ActiveOccupants = map[string]struct{}{"mike": {}}
	require.True(t, withOccupant.IsHeld())
}

func TestClone_DoesNotAliasMaps(t *testing.T) {
	until := time.Now()
	original := LocationRuntimeState{
		IsOccupied:      true,
		OccupiedUntil:   &until,
		ActiveOccupants: map[string]struct{}{"mike": {}},
		ActiveHolds:     map[string]struct{}{"couch": {}},
		LockState:       LockUnlocked,
	}

	clone := original.Clone()
	clone.ActiveOccupants["dana"] = struct{}{}
	*clone.OccupiedUntil = until.Add(time.Hour)

	require.Len(t, original.ActiveOccupants, 1, "mutating the clone's set must not affect the original")
	require.True(t, original.OccupiedUntil.Equal(until), "mutating the clone's pointee must not affect the original")
}

func TestSetWithAndWithout(t *testing.T) {
	var s map[string]struct{}
	require.False(t, SetHas(s, "mike"))

	s = SetWith(s, "mike")
	require.True(t, SetHas(s, "mike"))

	s = SetWith(s, "dana")
	require.Len(t, s, 2)

	s = SetWithout(s, "mike")
	require.False(t, SetHas(s, "mike"))
	require.Len(t, s, 1)

	s = SetWithout(s, "dana")
	require.Nil(t, s, "removing the last member must yield nil, not an empty map")
}
