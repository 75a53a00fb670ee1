// The moderator tool tails the pairing server's moderation feed. It logs
// every report, ban and filter hit, re-screens reported transcripts through
// the content filter, and, when the report archive is configured, annotates
// each report with the target's recent report count.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strangerconnect/pairing/internal/hub"
	"github.com/strangerconnect/pairing/internal/messaging"
	"github.com/strangerconnect/pairing/internal/moderation"
	"github.com/strangerconnect/pairing/internal/report"
)

func main() {
	log.Println("starting moderation feed listener...")

	natsConfig := messaging.DefaultConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsConfig.Name = "pairing-moderator"

	natsClient, err := messaging.Connect(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	var reportStore *report.Store
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := report.Open(databaseURL)
		if err != nil {
			log.Fatalf("failed to open report archive: %v", err)
		}
		defer db.Close()
		reportStore = report.NewStore(db)
	}

	filter := moderation.NewFilter()

	err = natsClient.Subscribe(messaging.SubjectReport, func(data []byte) {
		var ev hub.ReportEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[moderator] bad report event: %v", err)
			return
		}

		log.Printf("[moderator] REPORT target=%s reporter=%s room=%s reason=%q messages=%d",
			ev.Target, ev.Reporter, ev.RoomID, ev.Reason, len(ev.Transcript))

		// Re-screen the transcript: messages the filter would have caught
		// with a stricter list show up here for blocklist tuning.
		for _, m := range ev.Transcript {
			if res := filter.Check(m.Text); res.Blocked {
				log.Printf("[moderator]   flagged from=%s reason=%s term=%q", m.From, res.Reason, res.Term)
			}
		}

		if reportStore != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if n, err := reportStore.CountRecent(ctx, ev.Target, 24*time.Hour); err == nil {
				log.Printf("[moderator]   target=%s reports_last_24h=%d", ev.Target, n)
			}
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to %s: %v", messaging.SubjectReport, err)
	}

	err = natsClient.Subscribe(messaging.SubjectBan, func(data []byte) {
		var ev hub.BanEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[moderator] bad ban event: %v", err)
			return
		}
		log.Printf("[moderator] BAN session=%s reports=%d", ev.SessionID, ev.Reports)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to %s: %v", messaging.SubjectBan, err)
	}

	err = natsClient.Subscribe(messaging.SubjectBlocked, func(data []byte) {
		var ev hub.BlockedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[moderator] bad blocked event: %v", err)
			return
		}
		log.Printf("[moderator] BLOCKED session=%s room=%s reason=%s term=%q",
			ev.SessionID, ev.RoomID, ev.Reason, ev.Term)
	})
	if err != nil {
		log.Fatalf("failed to subscribe to %s: %v", messaging.SubjectBlocked, err)
	}

	log.Printf("moderation feed listener running")
	log.Printf("  nats_url: %s", natsConfig.URL)
	log.Printf("  archive:  %v", reportStore != nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	natsClient.Close()
}
