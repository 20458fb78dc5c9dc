// SPDX-License-Identifier: MIT

package badgerstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/occupancy/engine/internal/persistence"
)

func TestMain(m *testing.M) {
	// Badger's own value-log GC and compaction goroutines are
	// long-running by design and do not always exit by the time Close
	// returns; ignore goroutines rooted in the badger package rather
	// than chase a non-leak.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/dgraph-io/badger/v4.(*levelsController).runCompactor"))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_LoadOnFreshDatabaseReturnsNotFound(t *testing.T) {
	s := openTestStore(t)

	env, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, persistence.Envelope{}, env)
}

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved := persistence.Envelope{
		SavedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Entries: map[string]string{"kitchen": `{"is_occupied":true}`},
	}
	require.NoError(t, s.Save(ctx, saved))

	loaded, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, saved.SavedAt.Equal(loaded.SavedAt))
	require.Equal(t, saved.Entries, loaded.Entries)
}

func TestStore_SaveOverwritesPreviousEnvelope(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, persistence.Envelope{Entries: map[string]string{"a": "1"}}))
	require.NoError(t, s.Save(ctx, persistence.Envelope{Entries: map[string]string{"b": "2"}}))

	loaded, ok, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, map[string]string{"b": "2"}, loaded.Entries)
}
