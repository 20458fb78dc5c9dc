// SPDX-License-Identifier: MIT

// Package ratelimit bounds how often a single sensor source may submit
// events to the engine, independent of the HTTP-layer per-remote-address
// limit the daemon applies with httprate. A misbehaving or miswired
// sensor retriggering hundreds of times a second should not be able to
// starve the engine's single-writer mutex for every other source.
package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var rateLimitExceeded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "occupancy",
		Name:      "ratelimit_exceeded_total",
		Help:      "Total per-source-id rate limit rejections.",
	},
	[]string{"source_id"},
)

// Config holds per-source rate limiting configuration.
type Config struct {
	// PerSourceRate and PerSourceBurst bound how many events per second
	// a single source_id may submit.
	PerSourceRate  rate.Limit
	PerSourceBurst int

	// CleanupInterval controls how often stale per-source limiters are
	// dropped so a long-lived daemon does not accumulate one entry per
	// sensor that has ever spoken, forever.
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults for a home-scale sensor count.
func DefaultConfig() Config {
	return Config{
		PerSourceRate:   5,  // 5 events/s per source
		PerSourceBurst:  10, // burst up to 10
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter enforces a token bucket per sensor source_id.
type Limiter struct {
	config Config

	mu          sync.Mutex
	perSource   map[string]*rate.Limiter
	lastCleanup time.Time
}

// New creates a Limiter from config.
func New(config Config) *Limiter {
	return &Limiter{
		config:      config,
		perSource:   make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

// Allow reports whether an event from sourceID may proceed. Rejections
// are counted under occupancy_ratelimit_exceeded_total.
func (l *Limiter) Allow(sourceID string) bool {
	l.maybeCleanup()
	limiter := l.getSourceLimiter(sourceID)
	if !limiter.Allow() {
		rateLimitExceeded.WithLabelValues(sourceID).Inc()
		return false
	}
	return true
}

func (l *Limiter) getSourceLimiter(sourceID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.perSource[sourceID]
	if !exists {
		limiter = rate.NewLimiter(l.config.PerSourceRate, l.config.PerSourceBurst)
		l.perSource[sourceID] = limiter
	}
	return limiter
}

// maybeCleanup periodically drops every tracked per-source limiter once
// CleanupInterval has elapsed since the last sweep. This is a coarse
// reset rather than an LRU eviction: a source that keeps submitting
// simply gets a fresh, fully-refilled bucket, which is harmless.
func (l *Limiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	l.perSource = make(map[string]*rate.Limiter)
	l.lastCleanup = time.Now()
}
