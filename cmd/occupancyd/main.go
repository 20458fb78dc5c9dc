// SPDX-License-Identifier: MIT

// Command occupancyd loads a topology file, constructs an engine.Engine
// around it, and serves it over HTTP until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/occupancy/engine/internal/api"
	"github.com/occupancy/engine/internal/config"
	"github.com/occupancy/engine/internal/daemon"
	"github.com/occupancy/engine/internal/engine"
	"github.com/occupancy/engine/internal/log"
	"github.com/occupancy/engine/internal/metrics"
	"github.com/occupancy/engine/internal/persistence"
	"github.com/occupancy/engine/internal/persistence/sqlite"
	"github.com/occupancy/engine/internal/ratelimit"
	"github.com/occupancy/engine/internal/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the topology/daemon config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	log.Configure(log.Config{Level: "info", Service: "occupancyd", Version: version})
	logger := log.WithComponent("main")

	if err := run(*configPath, logger); err != nil {
		logger.Fatal().Err(err).Msg("occupancyd exited with error")
	}
}

func run(configPath string, logger zerolog.Logger) error {
	f, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log.Configure(log.Config{Level: f.Daemon.LogLevel, Service: "occupancyd", Version: version})
	logger = log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:      f.Daemon.TelemetryEnabled,
		ServiceName:  "occupancyd",
		Endpoint:     f.Daemon.TelemetryEndpoint,
		ExporterType: f.Daemon.TelemetryExporter,
		SamplingRate: 1.0,
	})
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}

	store, closeStore, err := persistence.New(f.Daemon)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}

	eng, err := engine.Construct(config.ToLocationConfigs(f.Topology),
		engine.WithMetrics(metrics.NewRecorder()),
		engine.WithLogger(api.NewEngineLogger()),
		engine.WithIDGenerator(func() string { return uuid.New().String() }),
	)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	if err := restoreSnapshot(ctx, store, eng, f.Daemon.SnapshotMaxAge); err != nil {
		logger.Warn().Err(err).Msg("snapshot restore skipped")
	}

	var auditLog *sqlite.AuditLog
	if f.Daemon.AuditDBPath != "" {
		if _, statErr := os.Stat(f.Daemon.AuditDBPath); statErr == nil {
			if problems, verr := sqlite.VerifyIntegrity(f.Daemon.AuditDBPath, "quick"); verr != nil {
				logger.Warn().Err(verr).Msg("audit database integrity check failed to run")
			} else if len(problems) > 0 {
				logger.Error().Strs("problems", problems).Msg("audit database failed integrity check")
			}
		}

		auditLog, err = sqlite.OpenAuditLog(f.Daemon.AuditDBPath, sqlite.DefaultConfig())
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
	}

	apiOpts := []api.Option{
		api.WithSnapshotMaxAge(f.Daemon.SnapshotMaxAge),
		api.WithRateLimiter(ratelimit.New(ratelimit.DefaultConfig())),
	}
	if auditLog != nil {
		apiOpts = append(apiOpts, api.WithAuditRecorder(auditLog))
	}
	server := api.New(eng, apiOpts...)

	cfgHolder := config.NewConfigHolder(configPath, eng)
	listenAddr := f.Daemon.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	manager := daemon.NewManager(daemon.DefaultServerConfig(listenAddr), server.Handler(), logger)
	if auditLog != nil {
		manager.RegisterShutdownHook("audit-log", func(context.Context) error { return auditLog.Close() })
	}
	manager.RegisterShutdownHook("snapshot-store", func(context.Context) error { return closeStore() })
	manager.RegisterShutdownHook("telemetry", func(shutdownCtx context.Context) error { return telProvider.Shutdown(shutdownCtx) })

	var daemonAudit daemon.AuditRecorder
	if auditLog != nil {
		daemonAudit = auditLog
	}
	app := daemon.NewApp(logger, manager, cfgHolder, eng, store, daemonAudit)

	return app.Run(ctx)
}

func restoreSnapshot(ctx context.Context, store persistence.SnapshotStore, eng *engine.Engine, maxAge time.Duration) error {
	env, ok, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	eng.Restore(persistence.DecodeEnvelope(env), time.Now(), maxAge)
	return nil
}
