// SPDX-License-Identifier: MIT

package persistence

import (
	"fmt"

	"github.com/occupancy/engine/internal/config"
	"github.com/occupancy/engine/internal/persistence/badgerstore"
	"github.com/occupancy/engine/internal/persistence/filestore"
	"github.com/occupancy/engine/internal/persistence/redisstore"
)

// New selects and opens the SnapshotStore backend named by d.StoreBackend.
// The returned closer (a no-op for filestore, which holds no handle)
// should be called by the caller on shutdown.
func New(d config.Daemon) (SnapshotStore, func() error, error) {
	switch d.StoreBackend {
	case "", "file":
		return filestore.New(d.StorePath), func() error { return nil }, nil
	case "badger":
		s, err := badgerstore.Open(d.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("persistence: open badger store: %w", err)
		}
		return s, s.Close, nil
	case "redis":
		s, err := redisstore.Open(redisstore.Config{Addr: d.RedisAddr})
		if err != nil {
			return nil, nil, fmt.Errorf("persistence: open redis store: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("persistence: unknown store backend %q", d.StoreBackend)
	}
}
