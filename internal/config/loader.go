// SPDX-License-Identifier: MIT

// Package config loads topology and daemon settings from a YAML file,
// overridable by OCC_-prefixed environment variables, and watches the
// topology file for hot-reload.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/occupancy/engine/internal/model"
)

// LocationSpec is the YAML representation of one model.LocationConfig
// entry. Timeouts are expressed in whole minutes for operator
// readability; Load converts them to time.Duration.
type LocationSpec struct {
	ID       string `yaml:"id"`
	ParentID string `yaml:"parent_id,omitempty"`
	Kind     string `yaml:"kind"`
	Strategy string `yaml:"strategy"`
	// ContributesToParent defaults to true when omitted from YAML:
	// propagation to a configured parent is the normal case, so an
	// operator has to opt out explicitly rather than opt in.
	ContributesToParent *bool          `yaml:"contributes_to_parent,omitempty"`
	TimeoutsMinutes     map[string]int `yaml:"timeouts"`
}

// contributesToParent resolves the tri-state YAML field to the bool the
// engine needs, applying the true default for an omitted entry.
func (l LocationSpec) contributesToParent() bool {
	if l.ContributesToParent == nil {
		return true
	}
	return *l.ContributesToParent
}

// Topology is the YAML document describing every configured location.
type Topology struct {
	Locations []LocationSpec `yaml:"locations"`
}

// Daemon holds the host-level settings that have no equivalent in the
// pure core: listen address, storage backend selection, and
// observability toggles.
type Daemon struct {
	ListenAddr       string        `yaml:"listen_addr"`
	StoreBackend     string        `yaml:"store_backend"` // "file", "badger", or "redis"
	StorePath        string        `yaml:"store_path"`
	RedisAddr        string        `yaml:"redis_addr"`
	AuditDBPath      string        `yaml:"audit_db_path"`
	LogLevel         string        `yaml:"log_level"`
	TelemetryEnabled bool          `yaml:"telemetry_enabled"`
	TelemetryEndpoint string       `yaml:"telemetry_endpoint"`
	TelemetryExporter string       `yaml:"telemetry_exporter"` // "grpc" or "http"; ignored when TelemetryEnabled is false
	SnapshotMaxAge   time.Duration `yaml:"-"`
	SnapshotMaxAgeMinutes int      `yaml:"snapshot_max_age_minutes"`
}

// File is the top-level YAML document: topology plus daemon settings.
type File struct {
	Topology Topology `yaml:"topology"`
	Daemon   Daemon   `yaml:"daemon"`
}

// ErrInvalidTopology wraps every validation failure Load can produce:
// duplicate ids, dangling parents, or a negative timeout.
var ErrInvalidTopology = fmt.Errorf("config: invalid topology")

// Load reads path, applies environment overrides, and validates the
// result. It never constructs an engine.Engine itself — that remains the
// caller's job, so this package has no dependency on internal/engine.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&f.Daemon)

	if f.Daemon.SnapshotMaxAgeMinutes <= 0 {
		f.Daemon.SnapshotMaxAgeMinutes = 15
	}
	f.Daemon.SnapshotMaxAge = time.Duration(f.Daemon.SnapshotMaxAgeMinutes) * time.Minute

	if f.Daemon.TelemetryExporter == "" {
		f.Daemon.TelemetryExporter = "grpc"
	}

	if err := Validate(f.Topology); err != nil {
		return nil, err
	}

	return &f, nil
}

// Validate checks a topology for the defects the engine's own Construct
// would otherwise reject, surfacing them before any engine is built.
func Validate(t Topology) error {
	seen := make(map[string]struct{}, len(t.Locations))
	for _, loc := range t.Locations {
		if _, dup := seen[loc.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidTopology, loc.ID)
		}
		seen[loc.ID] = struct{}{}
		for category, minutes := range loc.TimeoutsMinutes {
			if minutes < 0 {
				return fmt.Errorf("%w: %s: negative timeout for category %q", ErrInvalidTopology, loc.ID, category)
			}
		}
	}

	ids := make([]string, 0, len(t.Locations))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	specByID := make(map[string]LocationSpec, len(t.Locations))
	for _, loc := range t.Locations {
		specByID[loc.ID] = loc
	}
	for _, id := range ids {
		loc := specByID[id]
		if loc.ParentID == "" {
			continue
		}
		if _, ok := seen[loc.ParentID]; !ok {
			return fmt.Errorf("%w: %s: parent_id references unknown location %q", ErrInvalidTopology, loc.ID, loc.ParentID)
		}
	}
	return nil
}

// ToLocationConfigs converts the YAML topology into the engine's native
// config type.
func ToLocationConfigs(t Topology) []model.LocationConfig {
	out := make([]model.LocationConfig, 0, len(t.Locations))
	for _, loc := range t.Locations {
		timeouts := make(map[string]time.Duration, len(loc.TimeoutsMinutes))
		for category, minutes := range loc.TimeoutsMinutes {
			timeouts[category] = time.Duration(minutes) * time.Minute
		}
		strategy := model.StrategyIndependent
		if loc.Strategy == string(model.StrategyFollowParent) {
			strategy = model.StrategyFollowParent
		}
		kind := model.KindArea
		if loc.Kind == string(model.KindVirtual) {
			kind = model.KindVirtual
		}
		out = append(out, model.LocationConfig{
			ID:                  loc.ID,
			ParentID:            loc.ParentID,
			Kind:                kind,
			Strategy:            strategy,
			ContributesToParent: loc.contributesToParent(),
			Timeouts:            timeouts,
		})
	}
	return out
}
