// SPDX-License-Identifier: MIT

package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/occupancy/engine/internal/engine"
)

// EncodeEnvelope wraps an engine.Export result into the per-entry JSON
// blobs a SnapshotStore backend persists.
func EncodeEnvelope(savedAt time.Time, entries map[string]engine.SnapshotEntry) (Envelope, error) {
	out := Envelope{SavedAt: savedAt, Entries: make(map[string]string, len(entries))}
	for id, entry := range entries {
		buf, err := json.Marshal(entry)
		if err != nil {
			return Envelope{}, fmt.Errorf("persistence: encode entry %q: %w", id, err)
		}
		out.Entries[id] = string(buf)
	}
	return out, nil
}

// DecodeEnvelope reverses EncodeEnvelope for handing an Envelope back to
// engine.Restore. An entry that fails to unmarshal is skipped rather than
// failing the whole restore, matching Restore's own defect-tolerant
// stance on malformed snapshot data.
func DecodeEnvelope(env Envelope) map[string]engine.SnapshotEntry {
	out := make(map[string]engine.SnapshotEntry, len(env.Entries))
	for id, raw := range env.Entries {
		var entry engine.SnapshotEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		out[id] = entry
	}
	return out
}
