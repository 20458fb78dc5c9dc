// SPDX-License-Identifier: MIT

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocationConfig_TimeoutFor(t *testing.T) {
	cfg := LocationConfig{
		ID: "kitchen",
		Timeouts: map[string]time.Duration{
			"motion":  2 * time.Minute,
			"default": 5 * time.Minute,
		},
	}

	require.Equal(t, 2*time.Minute, cfg.TimeoutFor("motion"))
	require.Equal(t, 5*time.Minute, cfg.TimeoutFor("presence"), "unknown category falls back to default")
	require.Equal(t, 5*time.Minute, cfg.TimeoutFor(""), "empty category falls back to default")
}

func TestLocationConfig_TimeoutFor_UltimateFallback(t *testing.T) {
	cfg := LocationConfig{ID: "attic"}
	require.Equal(t, DefaultTimeoutMinutes*time.Minute, cfg.TimeoutFor("motion"))
}

func TestLocationConfig_HasParent(t *testing.T) {
	require.False(t, LocationConfig{ID: "home"}.HasParent())
	require.True(t, LocationConfig{ID: "kitchen", ParentID: "main_floor"}.HasParent())
}
