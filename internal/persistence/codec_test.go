// SPDX-License-Identifier: MIT

package persistence_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/occupancy/engine/internal/engine"
	"github.com/occupancy/engine/internal/model"
	"github.com/occupancy/engine/internal/persistence"
)

func TestEncodeDecodeEnvelope_RoundTrips(t *testing.T) {
	savedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	until := savedAt.Add(10 * time.Minute)

	entries := map[string]engine.SnapshotEntry{
		"kitchen": {
			IsOccupied:      true,
			OccupiedUntil:   &until,
			ActiveOccupants: []string{"motion-1"},
			ActiveHolds:     []string{},
			LockState:       model.LockUnlocked,
		},
		"garage": {
			IsOccupied:      false,
			OccupiedUntil:   nil,
			ActiveOccupants: []string{},
			ActiveHolds:     []string{},
			LockState:       model.LockLockedFrozen,
		},
	}

	env, err := persistence.EncodeEnvelope(savedAt, entries)
	require.NoError(t, err)
	require.True(t, env.SavedAt.Equal(savedAt))
	require.Len(t, env.Entries, 2)

	decoded := persistence.DecodeEnvelope(env)
	if diff := cmp.Diff(entries, decoded); diff != "" {
		t.Fatalf("round-tripped entries differ from the originals (-want +got):\n%s", diff)
	}
}

func TestDecodeEnvelope_SkipsUnparseableEntry(t *testing.T) {
	env := persistence.Envelope{
		SavedAt: time.Now(),
		Entries: map[string]string{
			"kitchen": `{"is_occupied": true`, // truncated JSON
			"garage":  `{"is_occupied": false, "occupied_until": null, "active_occupants": [], "active_holds": [], "lock_state": "unlocked"}`,
		},
	}

	decoded := persistence.DecodeEnvelope(env)
	require.Len(t, decoded, 1)
	require.Contains(t, decoded, "garage")
}
