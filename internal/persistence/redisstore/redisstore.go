// SPDX-License-Identifier: MIT

// Package redisstore is a SnapshotStore backend that keeps the snapshot
// envelope in a single Redis key, for deployments where the daemon runs
// as multiple replicas sharing one external store.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/occupancy/engine/internal/persistence"
)

const envelopeKey = "occupancy:snapshot:envelope"

// Config holds the Redis connection settings a Store needs.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store persists the envelope under a single fixed Redis key.
type Store struct {
	client *redis.Client
}

// Open connects to Redis and verifies reachability with a bounded Ping.
func Open(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redisstore: connect to %s: %w", cfg.Addr, err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an already-constructed client, for tests running
// against an in-process miniredis instance.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Save writes env to the envelope key with no expiry: staleness is judged
// per entry at restore time, not by a Redis TTL.
func (s *Store) Save(ctx context.Context, env persistence.Envelope) error {
	buf, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redisstore: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, envelopeKey, buf, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: write snapshot: %w", err)
	}
	return nil
}

// Load reads the envelope back. A missing key is not an error — it
// returns (zero envelope, false, nil).
func (s *Store) Load(ctx context.Context) (persistence.Envelope, bool, error) {
	raw, err := s.client.Get(ctx, envelopeKey).Bytes()
	if err == redis.Nil {
		return persistence.Envelope{}, false, nil
	}
	if err != nil {
		return persistence.Envelope{}, false, fmt.Errorf("redisstore: read snapshot: %w", err)
	}

	var env persistence.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return persistence.Envelope{}, false, fmt.Errorf("redisstore: decode snapshot: %w", err)
	}
	return env, true, nil
}
