// SPDX-License-Identifier: MIT

// Package badgerstore is a SnapshotStore backend backed by an embedded
// Badger key-value database, for deployments that want a single-process
// store with its own crash-safe write path instead of a plain file.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/occupancy/engine/internal/persistence"
)

var envelopeKey = []byte("snapshot:envelope")

// Store persists exactly one Envelope under a fixed key in an embedded
// Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database at dir and returns a Store
// backed by it. Badger's own internal logger is silenced; diagnostics
// flow through the caller's logger instead.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes env under the fixed envelope key, replacing whatever was
// there before.
func (s *Store) Save(_ context.Context, env persistence.Envelope) error {
	buf, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("badgerstore: encode snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(envelopeKey, buf)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: write snapshot: %w", err)
	}
	return nil
}

// Load reads the envelope back. A missing key is not an error — it
// returns (zero envelope, false, nil).
func (s *Store) Load(_ context.Context) (persistence.Envelope, bool, error) {
	var env persistence.Envelope
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(envelopeKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		return persistence.Envelope{}, false, fmt.Errorf("badgerstore: read snapshot: %w", err)
	}
	return env, found, nil
}
