// SPDX-License-Identifier: MIT

package daemon

import "errors"

// ErrMissingManager is returned by App.Run when constructed without a
// Manager.
var ErrMissingManager = errors.New("daemon: manager is required")

// ErrManagerNotStarted is returned by Manager.Shutdown when called before
// Start.
var ErrManagerNotStarted = errors.New("daemon: manager not started")
