// SPDX-License-Identifier: MIT

// Package filestore is a SnapshotStore backend that persists the engine's
// snapshot envelope to a single JSON file, written atomically and
// durably via renameio so a crash mid-write never leaves a truncated or
// partially-written snapshot on disk.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/renameio/v2"

	"github.com/occupancy/engine/internal/persistence"
)

// Store writes the snapshot envelope to Path.
type Store struct {
	Path string
}

// New returns a filestore.Store writing to path.
func New(path string) *Store {
	return &Store{Path: path}
}

// Save atomically replaces Path with env's JSON encoding: renameio
// writes to a temp file in the same directory, fsyncs it, then renames
// it into place, so a crash mid-write never leaves a truncated snapshot.
func (s *Store) Save(_ context.Context, env persistence.Envelope) error {
	pendingFile, err := renameio.NewPendingFile(s.Path)
	if err != nil {
		return fmt.Errorf("filestore: create pending file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("filestore: encode snapshot: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("filestore: atomically replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the snapshot envelope back from Path. A missing file is not
// an error — it returns (zero envelope, false, nil), matching a
// freshly-deployed daemon with nothing to restore.
func (s *Store) Load(_ context.Context) (persistence.Envelope, bool, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.Envelope{}, false, nil
		}
		return persistence.Envelope{}, false, fmt.Errorf("filestore: read %s: %w", s.Path, err)
	}

	var env persistence.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return persistence.Envelope{}, false, fmt.Errorf("filestore: decode %s: %w", s.Path, err)
	}
	return env, true, nil
}
