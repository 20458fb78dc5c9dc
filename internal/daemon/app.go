// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/occupancy/engine/internal/config"
	"github.com/occupancy/engine/internal/engine"
	"github.com/occupancy/engine/internal/metrics"
	"github.com/occupancy/engine/internal/model"
	"github.com/occupancy/engine/internal/persistence"
)

// pollFallback bounds how long the sweeper scheduler ever sleeps when no
// location has a pending timer, so a topology reload that adds a
// first-ever timeout is noticed within one interval rather than never.
const pollFallback = time.Minute

// minWakeup floors how soon the sweeper may wake again, guarding against
// a busy loop if NextExpiration keeps landing in the past.
const minWakeup = 100 * time.Millisecond

// AuditRecorder mirrors api.AuditRecorder so the sweeper can log
// transitions it commits without this package importing internal/api.
type AuditRecorder interface {
	Record(ctx context.Context, tr model.StateTransition) error
}

// App owns the long-lived runtime subsystems: the HTTP server (via
// Manager), the sweeper scheduler, and the topology config watcher. Run
// supervises them as sibling goroutines under one errgroup, stopping all
// of them on the first failure or on context cancellation.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.ConfigHolder
	engine       *engine.Engine
	store        persistence.SnapshotStore
	audit        AuditRecorder
	reloadSignal os.Signal
}

// NewApp builds an App. store and audit may be nil: a nil store disables
// periodic snapshot persistence, a nil audit disables sweep auditing.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.ConfigHolder, eng *engine.Engine, store persistence.SnapshotStore, audit AuditRecorder) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		engine:       eng,
		store:        store,
		audit:        audit,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts every subsystem and blocks until ctx is cancelled or a
// subsystem fails fatally. The HTTP server's own failure is the only
// fatal error; the config watcher and sweeper degrade to logging on
// recoverable errors so a transient topology-file or store hiccup does
// not bring the whole daemon down.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		g.Go(func() error {
			if err := a.cfgHolder.StartWatcher(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn().Err(err).Msg("config watcher stopped")
			}
			return nil
		})

		g.Go(func() error {
			a.runReloadSignalLoop(ctx)
			return nil
		})
	}

	if a.engine != nil {
		g.Go(func() error {
			a.runSweeper(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}

// runReloadSignalLoop reloads the topology file whenever the process
// receives reloadSignal (SIGHUP), independent of the fsnotify watcher.
func (a *App) runReloadSignalLoop(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.reloadSignal)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			a.logger.Info().Str("signal", a.reloadSignal.String()).Msg("reload signal received")
			if err := a.cfgHolder.Reload(); err != nil {
				a.logger.Warn().Err(err).Msg("config reload failed, keeping last-known-good")
			}
		}
	}
}

// runSweeper periodically calls engine.CheckTimeouts, sleeping until the
// instant the engine itself reports as its next wakeup (§4.4) rather than
// polling at a fixed cadence. Every sweep that commits a transition also
// persists a fresh snapshot, best-effort.
func (a *App) runSweeper(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-timer.C:
			result := a.engine.CheckTimeouts(now)
			for _, tr := range result.Transitions {
				metrics.SetActive(tr.LocationID, tr.New.IsOccupied)
			}
			metrics.SetNextExpiration(result.NextExpiration)
			if len(result.Transitions) > 0 {
				a.recordAudit(ctx, result)
				a.saveSnapshot(ctx, now)
			}
			timer.Reset(nextWakeupDelay(now, result.NextExpiration))
		}
	}
}

func nextWakeupDelay(now time.Time, next *time.Time) time.Duration {
	if next == nil {
		return pollFallback
	}
	d := next.Sub(now)
	if d < minWakeup {
		return minWakeup
	}
	if d > pollFallback {
		return pollFallback
	}
	return d
}

// recordAudit mirrors api.Server.recordAudit: best-effort, never fails
// the sweeper loop.
func (a *App) recordAudit(ctx context.Context, result engine.Result) {
	if a.audit == nil {
		return
	}
	for _, tr := range result.Transitions {
		if err := a.audit.Record(ctx, tr); err != nil {
			a.logger.Warn().Err(err).Str("transition_id", tr.ID).Msg("audit record failed")
		}
	}
}

func (a *App) saveSnapshot(ctx context.Context, now time.Time) {
	if a.store == nil {
		return
	}
	env, err := persistence.EncodeEnvelope(now, a.engine.Export())
	if err != nil {
		a.logger.Warn().Err(err).Msg("snapshot encode failed")
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.store.Save(saveCtx, env); err != nil {
		a.logger.Warn().Err(err).Msg("snapshot save failed")
	}
}
