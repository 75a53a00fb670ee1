package report

import (
	"context"
	"log"
	"time"

	"github.com/strangerconnect/pairing/internal/hub"
)

// Archiver persists report events from the hub. It implements the hub's
// Auditor interface; ban and filter events are not archived here, only
// reports. Writes happen on a background goroutine so a slow database never
// stalls a pairing operation.
type Archiver struct {
	store *Store
}

// NewArchiver creates an Archiver over the store.
func NewArchiver(store *Store) *Archiver {
	return &Archiver{store: store}
}

// ReportFiled archives the report asynchronously.
func (a *Archiver) ReportFiled(ev hub.ReportEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := a.store.Create(ctx, &Report{
			Reporter:   ev.Reporter,
			Target:     ev.Target,
			RoomID:     ev.RoomID,
			Reason:     ev.Reason,
			Transcript: ev.Transcript,
			FiledAt:    ev.FiledAt,
		})
		if err != nil {
			log.Printf("[report] archive failed reporter=%s target=%s: %v", ev.Reporter, ev.Target, err)
		}
	}()
}

// BanIssued is a no-op; bans are derivable from the archived reports.
func (a *Archiver) BanIssued(hub.BanEvent) {}

// MessageBlocked is a no-op; filter hits are not persisted.
func (a *Archiver) MessageBlocked(hub.BlockedEvent) {}
