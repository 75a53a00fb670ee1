// Package report archives abuse reports in PostgreSQL for moderator review.
// Each row captures who reported whom, the room, the stated reason, and a
// snapshot of the last messages exchanged. The archive is write-mostly and
// strictly optional: ban decisions are made in memory, not from this table.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/strangerconnect/pairing/internal/chat"
)

// validReasons matches the CHECK constraint on the abuse_reports table.
// Unknown client-supplied reasons are coerced to "other" rather than
// rejected, since the report itself is still worth keeping.
var validReasons = map[string]bool{
	"harassment": true,
	"spam":       true,
	"explicit":   true,
	"underage":   true,
	"other":      true,
}

// Report is one abuse report to persist.
type Report struct {
	Reporter   string
	Target     string
	RoomID     string
	Reason     string
	Transcript []chat.Message
	FiledAt    time.Time
}

// Store writes reports to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a report. The transcript is stored as JSONB.
func (s *Store) Create(ctx context.Context, r *Report) error {
	reason := r.Reason
	if !validReasons[reason] {
		reason = "other"
	}

	var transcript []byte
	if len(r.Transcript) > 0 {
		var err error
		transcript, err = json.Marshal(r.Transcript)
		if err != nil {
			return fmt.Errorf("report: marshal transcript: %w", err)
		}
	}

	filedAt := r.FiledAt
	if filedAt.IsZero() {
		filedAt = time.Now()
	}

	const query = `
		INSERT INTO abuse_reports (reporter_id, target_id, room_id, reason, transcript, filed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := s.db.ExecContext(ctx, query,
		r.Reporter, r.Target, r.RoomID, reason, transcript, filedAt,
	); err != nil {
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// CountRecent returns the number of reports filed against a target within the
// window. Moderators use this to review identities hovering under the
// auto-ban threshold.
func (s *Store) CountRecent(ctx context.Context, targetID string, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM abuse_reports
		WHERE target_id = $1
		  AND filed_at >= NOW() - $2::interval`

	var count int
	if err := s.db.QueryRowContext(ctx, query, targetID, window.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("report: count recent: %w", err)
	}
	return count, nil
}
