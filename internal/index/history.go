package index

import (
	"context"
	"fmt"
	"time"
)

// Study event kinds.
const (
	EventStarted  = "started"
	EventRead     = "read"
	EventUnlocked = "unlocked"
	EventEnded    = "ended"
)

// StudyEvent is one recorded session transition.
type StudyEvent struct {
	SessionID string    `json:"session_id"`
	Note      string    `json:"note,omitempty"`
	Kind      string    `json:"kind"`
	At        time.Time `json:"at"`
}

// RecordEvent appends ev to the study history.
func (db *DB) RecordEvent(ctx context.Context, ev StudyEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO study_events (session_id, note, kind, at) VALUES (?, ?, ?, ?)`,
		ev.SessionID, ev.Note, ev.Kind, ev.At.UTC())
	if err != nil {
		return fmt.Errorf("index: record event: %w", err)
	}
	return nil
}

// History returns the most recent events first. An empty sessionID returns
// events of every session.
func (db *DB) History(ctx context.Context, sessionID string, limit int) ([]StudyEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT session_id, note, kind, at
		FROM study_events
		WHERE ? = '' OR session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, sessionID, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("index: history: %w", err)
	}
	defer rows.Close()

	out := []StudyEvent{}
	for rows.Next() {
		var ev StudyEvent
		if err := rows.Scan(&ev.SessionID, &ev.Note, &ev.Kind, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
