// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/occupancy/engine/internal/log"
	"github.com/occupancy/engine/internal/model"
)

// Reconfigurer is the subset of engine.Engine that ConfigHolder needs:
// satisfied by *engine.Engine without this package importing it
// directly, so internal/config has no dependency on internal/engine.
type Reconfigurer interface {
	Reconfigure(configs []model.LocationConfig) error
}

// ConfigHolder owns the on-disk path of the topology file and feeds
// reloads to a live engine as the file changes.
type ConfigHolder struct {
	path   string
	target Reconfigurer
}

// NewConfigHolder returns a holder that will push topology reloads for
// path into target.
func NewConfigHolder(path string, target Reconfigurer) *ConfigHolder {
	return &ConfigHolder{path: path, target: target}
}

// Reload reads and validates the topology file once and pushes it into
// the target engine.
func (h *ConfigHolder) Reload() error {
	f, err := Load(h.path)
	if err != nil {
		return err
	}
	return h.target.Reconfigure(ToLocationConfigs(f.Topology))
}

// StartWatcher runs an fsnotify watch loop on the topology file itself
// until ctx is cancelled, calling Reload on every write or create event.
// A malformed reload is logged and skipped — the engine keeps running
// on its last-known-good topology rather than crashing the daemon.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(h.path); err != nil {
		return fmt.Errorf("config: watch %s: %w", h.path, err)
	}

	logger := log.L()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := h.Reload(); err != nil {
				logger.Warn().Err(err).Str("path", h.path).Msg("config: topology reload failed, keeping last-known-good")
				continue
			}
			logger.Info().Str("path", h.path).Msg("config: topology reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config: watcher error")
		}
	}
}
