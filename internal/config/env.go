// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
)

// applyEnvOverrides lets OCC_-prefixed environment variables override
// the daemon settings parsed from YAML, for container deployments that
// inject configuration without a mounted file.
func applyEnvOverrides(d *Daemon) {
	if v, ok := os.LookupEnv("OCC_LISTEN_ADDR"); ok {
		d.ListenAddr = v
	}
	if v, ok := os.LookupEnv("OCC_STORE_BACKEND"); ok {
		d.StoreBackend = v
	}
	if v, ok := os.LookupEnv("OCC_STORE_PATH"); ok {
		d.StorePath = v
	}
	if v, ok := os.LookupEnv("OCC_REDIS_ADDR"); ok {
		d.RedisAddr = v
	}
	if v, ok := os.LookupEnv("OCC_AUDIT_DB_PATH"); ok {
		d.AuditDBPath = v
	}
	if v, ok := os.LookupEnv("OCC_LOG_LEVEL"); ok {
		d.LogLevel = v
	}
	if v, ok := os.LookupEnv("OCC_TELEMETRY_ENDPOINT"); ok {
		d.TelemetryEndpoint = v
	}
	if v, ok := os.LookupEnv("OCC_TELEMETRY_EXPORTER"); ok {
		d.TelemetryExporter = v
	}
	if v, ok := os.LookupEnv("OCC_TELEMETRY_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			d.TelemetryEnabled = b
		}
	}
	if v, ok := os.LookupEnv("OCC_SNAPSHOT_MAX_AGE_MINUTES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			d.SnapshotMaxAgeMinutes = n
		}
	}
}
