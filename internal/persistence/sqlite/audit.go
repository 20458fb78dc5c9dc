package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/occupancy/engine/internal/model"
)

// AuditLog is a durable, queryable record of every StateTransition the
// engine has ever committed, independent of the snapshot store: the
// snapshot only ever holds current state, so "why is the kitchen
// occupied" can only be answered by replaying this log.
type AuditLog struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id           TEXT PRIMARY KEY,
	location_id  TEXT NOT NULL,
	reason       TEXT NOT NULL,
	previous     TEXT NOT NULL,
	new          TEXT NOT NULL,
	committed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_location_time
	ON transitions (location_id, committed_at);
`

// OpenAuditLog opens (creating if absent) a sqlite-backed AuditLog at
// dbPath, applying the WAL/busy-timeout pragmas from cfg and the schema
// above.
func OpenAuditLog(dbPath string, cfg Config) (*AuditLog, error) {
	db, err := Open(dbPath, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: audit schema migration failed: %w", err)
	}
	return &AuditLog{db: db}, nil
}

// Close releases the underlying database handle.
func (a *AuditLog) Close() error {
	return a.db.Close()
}

type stateJSON struct {
	IsOccupied      bool            `json:"is_occupied"`
	OccupiedUntil   *time.Time      `json:"occupied_until"`
	ActiveOccupants []string        `json:"active_occupants,omitempty"`
	ActiveHolds     []string        `json:"active_holds,omitempty"`
	LockState       model.LockState `json:"lock_state"`
}

func toStateJSON(s model.LocationRuntimeState) stateJSON {
	return stateJSON{
		IsOccupied:      s.IsOccupied,
		OccupiedUntil:   s.OccupiedUntil,
		ActiveOccupants: keysOf(s.ActiveOccupants),
		ActiveHolds:     keysOf(s.ActiveHolds),
		LockState:       s.LockState,
	}
}

func keysOf(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// Record appends one committed transition to the log. Callers typically
// call this once per entry in an engine.Result.Transitions slice, right
// after HandleEvent or CheckTimeouts returns.
func (a *AuditLog) Record(ctx context.Context, tr model.StateTransition) error {
	prevJSON, err := json.Marshal(toStateJSON(tr.Previous))
	if err != nil {
		return fmt.Errorf("sqlite: marshal previous state: %w", err)
	}
	newJSON, err := json.Marshal(toStateJSON(tr.New))
	if err != nil {
		return fmt.Errorf("sqlite: marshal new state: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO transitions (id, location_id, reason, previous, new, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tr.ID, tr.LocationID, string(tr.Reason), string(prevJSON), string(newJSON), tr.At.UTC().Format(committedAtLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert transition: %w", err)
	}
	return nil
}

// AuditEntry is one row decoded back out of the log for querying.
type AuditEntry struct {
	ID          string
	LocationID  string
	Reason      model.TransitionReason
	Previous    model.LocationRuntimeState
	New         model.LocationRuntimeState
	CommittedAt time.Time
}

// committedAtLayout is RFC 3339 with a fixed nine-digit fraction, so the
// text order of committed_at matches time order in ForLocation's query.
const committedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ForLocation returns every recorded transition for locationID committed
// at or after since, oldest first.
func (a *AuditLog) ForLocation(ctx context.Context, locationID string, since time.Time) ([]AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, location_id, reason, previous, new, committed_at
		 FROM transitions
		 WHERE location_id = ? AND committed_at >= ?
		 ORDER BY committed_at ASC`,
		locationID, since.UTC().Format(committedAtLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query transitions: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e                 AuditEntry
			reason            string
			prevJSON, newJSON string
			committedAtStr    string
		)
		if err := rows.Scan(&e.ID, &e.LocationID, &reason, &prevJSON, &newJSON, &committedAtStr); err != nil {
			return nil, fmt.Errorf("sqlite: scan transition row: %w", err)
		}
		e.Reason = model.TransitionReason(reason)

		var prev, next stateJSON
		if err := json.Unmarshal([]byte(prevJSON), &prev); err != nil {
			return nil, fmt.Errorf("sqlite: decode previous state: %w", err)
		}
		if err := json.Unmarshal([]byte(newJSON), &next); err != nil {
			return nil, fmt.Errorf("sqlite: decode new state: %w", err)
		}
		e.Previous = fromStateJSON(prev)
		e.New = fromStateJSON(next)

		committedAt, err := time.Parse(time.RFC3339Nano, committedAtStr)
		if err != nil {
			return nil, fmt.Errorf("sqlite: decode committed_at: %w", err)
		}
		e.CommittedAt = committedAt

		out = append(out, e)
	}
	return out, rows.Err()
}

func fromStateJSON(s stateJSON) model.LocationRuntimeState {
	return model.LocationRuntimeState{
		IsOccupied:      s.IsOccupied,
		OccupiedUntil:   s.OccupiedUntil,
		ActiveOccupants: sliceToSetSQLite(s.ActiveOccupants),
		ActiveHolds:     sliceToSetSQLite(s.ActiveHolds),
		LockState:       s.LockState,
	}
}

func sliceToSetSQLite(in []string) map[string]struct{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(in))
	for _, k := range in {
		out[k] = struct{}{}
	}
	return out
}
