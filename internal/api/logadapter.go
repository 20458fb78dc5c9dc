// SPDX-License-Identifier: MIT

package api

import (
	"github.com/rs/zerolog"

	"github.com/occupancy/engine/internal/log"
)

// engineLogger adapts a zerolog.Logger to engine.Logger, so the core
// package never imports zerolog directly.
type engineLogger struct {
	logger zerolog.Logger
}

// NewEngineLogger wraps the occupancy component logger for use with
// engine.WithLogger.
func NewEngineLogger() engineLogger {
	return engineLogger{logger: log.WithComponent("engine")}
}

func (l engineLogger) Warn(msg string, fields map[string]any) {
	ev := l.logger.Warn()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
