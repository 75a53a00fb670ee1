package messaging

import (
	"encoding/json"
	"log"

	"github.com/strangerconnect/pairing/internal/hub"
)

// Feed publishes hub moderation events onto the NATS feed. It implements the
// hub's Auditor interface. Publish failures are logged and swallowed; the
// feed is advisory and must never affect pairing behavior.
type Feed struct {
	client *Client
}

// NewFeed creates a Feed over an established NATS client.
func NewFeed(client *Client) *Feed {
	return &Feed{client: client}
}

// ReportFiled publishes an abuse report event.
func (f *Feed) ReportFiled(ev hub.ReportEvent) {
	f.publish(SubjectReport, ev)
}

// BanIssued publishes a ban event.
func (f *Feed) BanIssued(ev hub.BanEvent) {
	f.publish(SubjectBan, ev)
}

// MessageBlocked publishes a content-filter event.
func (f *Feed) MessageBlocked(ev hub.BlockedEvent) {
	f.publish(SubjectBlocked, ev)
}

func (f *Feed) publish(subject string, ev interface{}) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[nats] marshal %s event: %v", subject, err)
		return
	}
	if err := f.client.Publish(subject, data); err != nil {
		log.Printf("[nats] publish %s: %v", subject, err)
	}
}
