// SPDX-License-Identifier: MIT

// Package daemon wires the pure engine core into a long-running process:
// an HTTP server, a sweeper scheduler that drives engine.CheckTimeouts,
// and a topology config watcher, supervised as sibling goroutines that
// all stop on the first failure or on context cancellation.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ShutdownHook performs cleanup during graceful shutdown. Hooks run in
// reverse registration order (LIFO), after the HTTP server has been shut
// down.
type ShutdownHook func(ctx context.Context) error

// Manager owns the HTTP server's lifecycle: starting it, shutting it
// down, and running registered cleanup hooks.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
}

// ServerConfig bounds the HTTP server's listen address and timeouts.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns sane timeouts for addr. The daemon always
// uses these; the config file has no server-timeout settings.
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		ListenAddr:      addr,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

type namedHook struct {
	name string
	hook ShutdownHook
}

type manager struct {
	cfg     ServerConfig
	handler http.Handler
	logger  zerolog.Logger

	httpServer *http.Server

	mu            sync.Mutex
	started       bool
	shutdownHooks []namedHook
}

// NewManager builds a Manager serving handler at cfg.ListenAddr.
func NewManager(cfg ServerConfig, handler http.Handler, logger zerolog.Logger) Manager {
	return &manager{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With().Str("component", "daemon.manager").Logger(),
	}
}

func (m *manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("daemon: manager already started")
	}
	m.started = true
	m.httpServer = &http.Server{
		Addr:              m.cfg.ListenAddr,
		Handler:           m.handler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       m.cfg.IdleTimeout,
	}
	m.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info().Str("addr", m.cfg.ListenAddr).Msg("HTTP server listening")
		if err := m.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			m.logger.Error().Err(err).Msg("HTTP server failed")
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Msg("shutdown signal received")
		return m.Shutdown(context.Background())
	}
}

func (m *manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrManagerNotStarted
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if m.httpServer != nil {
		if err := m.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	for i := len(m.shutdownHooks) - 1; i >= 0; i-- {
		h := m.shutdownHooks[i]
		if err := h.hook(shutdownCtx); err != nil {
			m.logger.Error().Err(err).Str("hook", h.name).Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("daemon: shutdown errors: %v", errs)
	}
	m.logger.Info().Msg("daemon stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
}
