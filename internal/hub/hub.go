// Package hub is the pairing server's core. It owns all matchmaking and room
// state and serializes every state transition under a single mutex, so a
// connect, join, match, relay, report and disconnect can never interleave in
// a way that leaves an identity in two places at once.
//
// The hub never writes to the network while holding its lock. Each handler
// mutates state, collects the outbound messages it decided on, unlocks, and
// only then delivers them. A failed delivery is treated as a disconnect of
// the unreachable session.
package hub

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/strangerconnect/pairing/internal/ban"
	"github.com/strangerconnect/pairing/internal/chat"
	"github.com/strangerconnect/pairing/internal/matching"
	"github.com/strangerconnect/pairing/internal/metrics"
	"github.com/strangerconnect/pairing/internal/moderation"
	"github.com/strangerconnect/pairing/internal/protocol"
	"github.com/strangerconnect/pairing/internal/room"
)

// Sender delivers an encoded server message to a session's connection.
// The ws layer implements this.
type Sender interface {
	Send(sessionID string, data []byte) error
}

// ReportEvent is emitted when a user files an abuse report.
type ReportEvent struct {
	Reporter   string         `json:"reporter"`
	Target     string         `json:"target"`
	RoomID     string         `json:"room_id"`
	Reason     string         `json:"reason"`
	Transcript []chat.Message `json:"transcript,omitempty"`
	FiledAt    time.Time      `json:"filed_at"`
}

// BanEvent is emitted when a report pushes a target over the ban threshold.
type BanEvent struct {
	SessionID string    `json:"session_id"`
	Reports   int       `json:"reports"`
	IssuedAt  time.Time `json:"issued_at"`
}

// BlockedEvent is emitted when the content filter drops a message.
type BlockedEvent struct {
	SessionID string    `json:"session_id"`
	RoomID    string    `json:"room_id"`
	Reason    string    `json:"reason"`
	Term      string    `json:"term"`
	At        time.Time `json:"at"`
}

// Auditor receives moderation events. Implementations must not block for
// long; the hub invokes them synchronously after releasing its lock.
type Auditor interface {
	ReportFiled(ReportEvent)
	BanIssued(BanEvent)
	MessageBlocked(BlockedEvent)
}

// State is a session's position in the connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateQueued
	StateMatched
)

// File sharing limits, matching what clients enforce.
const (
	// MaxFileBytes caps the decoded size of a shared file.
	MaxFileBytes = 5 << 20
)

// allowedMime lists the exact MIME types accepted for file sharing beyond
// the image/* prefix.
var allowedMime = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Hub owns the matchmaking queues, active rooms, ban state and per-session
// lifecycle state.
type Hub struct {
	mu     sync.Mutex
	queues *matching.Queues
	rooms  *room.Registry
	bans   *ban.Tracker
	states map[string]State

	sender  Sender
	filter  *moderation.Filter
	buffer  *chat.Buffer
	auditor Auditor
}

// Option configures a Hub.
type Option func(*Hub)

// WithAuditor attaches a moderation event sink.
func WithAuditor(a Auditor) Option {
	return func(h *Hub) { h.auditor = a }
}

// WithFilter replaces the default content filter.
func WithFilter(f *moderation.Filter) Option {
	return func(h *Hub) { h.filter = f }
}

// New creates a hub delivering through the given sender.
func New(sender Sender, opts ...Option) *Hub {
	h := &Hub{
		queues: matching.NewQueues(),
		rooms:  room.NewRegistry(),
		bans:   ban.NewTracker(),
		states: make(map[string]State),
		sender: sender,
		filter: moderation.NewFilter(),
		buffer: chat.NewBuffer(chat.DefaultBufferDepth),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// outbound is a pending delivery decided on while the lock was held.
type outbound struct {
	to   string
	data []byte
}

// HandleConnect registers a freshly upgraded session as idle.
func (h *Hub) HandleConnect(sessionID string) {
	h.mu.Lock()
	h.states[sessionID] = StateIdle
	h.mu.Unlock()

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
}

// HandleJoinQueue processes a join_queue request: it either pairs the session
// immediately with a compatible waiting user or parks it in the queue. A
// session already in a room is treated as asking for the next partner, so the
// current room is torn down first.
func (h *Hub) HandleJoinQueue(sessionID string, msg *protocol.JoinQueueMsg) {
	chatType := matching.ChatType(strings.ToLower(msg.ChatType))
	if !chatType.Valid() {
		h.sendOne(sessionID, protocol.TypeError, protocol.ErrorMsg{
			Code:    "invalid_chat_type",
			Message: "chat type must be \"text\" or \"video\"",
		})
		return
	}

	var outs []outbound

	h.mu.Lock()

	if h.bans.IsBanned(sessionID) {
		h.mu.Unlock()
		h.sendOne(sessionID, protocol.TypeBanned, protocol.BannedMsg{})
		return
	}

	// Joining while matched means "next": leave the current room and tell
	// the partner the chat is over.
	if r := h.rooms.ByUser(sessionID); r != nil {
		outs = append(outs, h.teardownLocked(r, r.Partner(sessionID))...)
	}

	interests := h.filter.CheckInterests(msg.Interests)
	entry := matching.NewEntry(sessionID, chatType, interests,
		matching.Filters{Country: msg.Country, Gender: msg.Gender},
		matching.Profile{Country: msg.SelfCountry, Gender: msg.SelfGender})

	match := matching.FindMatch(entry, h.queues.Entries(chatType))
	if match == nil {
		h.queues.Enqueue(entry)
		h.states[sessionID] = StateQueued
		h.updateQueueGauges()
		h.mu.Unlock()

		outs = append(outs, h.build(sessionID, protocol.TypeWaiting, protocol.WaitingMsg{})...)
		h.deliver(outs)
		return
	}

	h.queues.Remove(match.SessionID)
	shared := matching.SharedInterests(entry, match)
	r, err := h.rooms.Create(sessionID, match.SessionID, chatType, shared)
	if err != nil {
		// FindMatch never returns the requester, so this cannot happen.
		h.states[sessionID] = StateIdle
		h.updateQueueGauges()
		h.mu.Unlock()
		log.Printf("[hub] room create failed for %s/%s: %v", sessionID, match.SessionID, err)
		h.deliver(outs)
		return
	}
	h.states[sessionID] = StateMatched
	h.states[match.SessionID] = StateMatched
	h.updateQueueGauges()
	metrics.ActiveRooms.Set(float64(h.rooms.Count()))
	h.mu.Unlock()

	metrics.MatchesTotal.WithLabelValues(string(chatType)).Inc()
	found := protocol.MatchFoundMsg{Room: r.ID, SharedInterests: shared}
	outs = append(outs, h.build(sessionID, protocol.TypeMatchFound, found)...)
	outs = append(outs, h.build(match.SessionID, protocol.TypeMatchFound, found)...)
	h.deliver(outs)
}

// HandleEndChat tears down the session's room and notifies the partner. A
// stale or foreign room ID is ignored.
func (h *Hub) HandleEndChat(sessionID string, msg *protocol.EndChatMsg) {
	h.mu.Lock()
	r := h.rooms.Get(msg.Room)
	if r == nil || !r.IsParticipant(sessionID) {
		h.mu.Unlock()
		return
	}
	outs := h.teardownLocked(r, r.Partner(sessionID))
	h.mu.Unlock()

	h.deliver(outs)
}

// HandleMessage relays a chat message to both participants of the room,
// sender included, after validation and content filtering. Invalid or
// blocked messages are dropped without relay.
func (h *Hub) HandleMessage(sessionID string, msg *protocol.ChatMsg) {
	text, err := chat.ValidateMessage(msg.Text)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("invalid").Inc()
		return
	}

	if res := h.filter.Check(text); res.Blocked {
		metrics.MessagesTotal.WithLabelValues("blocked").Inc()
		if h.auditor != nil {
			h.auditor.MessageBlocked(BlockedEvent{
				SessionID: sessionID,
				RoomID:    msg.Room,
				Reason:    res.Reason,
				Term:      res.Term,
				At:        time.Now(),
			})
		}
		return
	}

	h.mu.Lock()
	r := h.rooms.Get(msg.Room)
	if r == nil || !r.IsParticipant(sessionID) {
		h.mu.Unlock()
		return
	}
	partner := r.Partner(sessionID)
	h.buffer.Record(r.ID, sessionID, text)
	h.mu.Unlock()

	metrics.MessagesTotal.WithLabelValues("relayed").Inc()
	recv := protocol.ReceiveMessageMsg{From: sessionID, Text: text, Ts: time.Now().UnixMilli()}
	var outs []outbound
	outs = append(outs, h.build(sessionID, protocol.TypeReceiveMessage, recv)...)
	outs = append(outs, h.build(partner, protocol.TypeReceiveMessage, recv)...)
	h.deliver(outs)
}

// HandleTyping relays a typing indicator to the partner only.
func (h *Hub) HandleTyping(sessionID string, msg *protocol.TypingMsg) {
	h.relayToPartner(sessionID, msg.Room, protocol.TypePartnerTyping, protocol.PartnerTypingMsg{})
}

// HandleStopTyping relays a stop-typing indicator to the partner only.
func (h *Hub) HandleStopTyping(sessionID string, msg *protocol.StopTypingMsg) {
	h.relayToPartner(sessionID, msg.Room, protocol.TypePartnerStopTyping, protocol.PartnerStopTypingMsg{})
}

// HandleSignal forwards an opaque WebRTC signaling payload to the partner.
// The payload is never echoed back to the sender and never inspected.
func (h *Hub) HandleSignal(sessionID string, msg *protocol.SignalMsg) {
	h.relayToPartner(sessionID, msg.Room, protocol.TypeSignal, protocol.ServerSignalMsg{
		Payload: msg.Payload,
		From:    sessionID,
	})
}

// HandleFileShare relays a file to the partner after enforcing the size cap
// and MIME allow-list. Rejections are reported to the sender only.
func (h *Hub) HandleFileShare(sessionID string, msg *protocol.FileShareMsg) {
	if !mimeAllowed(msg.File.MimeType) {
		h.sendOne(sessionID, protocol.TypeError, protocol.ErrorMsg{
			Code:    "file_rejected",
			Message: "file type not allowed",
		})
		return
	}
	// Data is base64; three decoded bytes per four encoded characters.
	if len(msg.File.Data)/4*3 > MaxFileBytes {
		h.sendOne(sessionID, protocol.TypeError, protocol.ErrorMsg{
			Code:    "file_rejected",
			Message: "file exceeds the 5MB limit",
		})
		return
	}

	h.relayToPartner(sessionID, msg.Room, protocol.TypeFileReceived, protocol.FileReceivedMsg{
		From: sessionID,
		File: msg.File,
	})
}

// HandleRaiseHand relays a raise-hand gesture to the partner.
func (h *Hub) HandleRaiseHand(sessionID string, msg *protocol.RaiseHandMsg) {
	h.relayToPartner(sessionID, msg.Room, protocol.TypeHandRaised, protocol.HandRaisedMsg{})
}

// HandleLowerHand relays a lower-hand gesture to the partner.
func (h *Hub) HandleLowerHand(sessionID string, msg *protocol.LowerHandMsg) {
	h.relayToPartner(sessionID, msg.Room, protocol.TypeHandLowered, protocol.HandLoweredMsg{})
}

// HandleReport files an abuse report against the session's current partner,
// ends the chat, and bans the target once enough distinct reporters have
// filed against it. Reporting a room that no longer exists is a no-op: the
// target already left and there is nobody to attribute the report to.
func (h *Hub) HandleReport(sessionID string, msg *protocol.ReportMsg) {
	var outs []outbound
	var audits []func()

	h.mu.Lock()
	r := h.rooms.Get(msg.Room)
	if r == nil || !r.IsParticipant(sessionID) {
		h.mu.Unlock()
		return
	}
	target := r.Partner(sessionID)
	transcript := h.buffer.Snapshot(r.ID)

	banned := h.bans.Report(target, sessionID)
	reports := h.bans.Count(target)

	outs = append(outs, h.teardownLocked(r, sessionID, target)...)
	if banned {
		h.queues.Remove(target)
		h.updateQueueGauges()
		outs = append(outs, h.build(target, protocol.TypeBanned, protocol.BannedMsg{})...)
	}

	if h.auditor != nil {
		ev := ReportEvent{
			Reporter:   sessionID,
			Target:     target,
			RoomID:     r.ID,
			Reason:     msg.Reason,
			Transcript: transcript,
			FiledAt:    time.Now(),
		}
		audits = append(audits, func() { h.auditor.ReportFiled(ev) })
		if banned {
			bev := BanEvent{SessionID: target, Reports: reports, IssuedAt: time.Now()}
			audits = append(audits, func() { h.auditor.BanIssued(bev) })
		}
	}
	h.mu.Unlock()

	metrics.ReportsTotal.Inc()
	if banned {
		metrics.BansTotal.Inc()
	}
	h.deliver(outs)
	runAudits(audits)
}

// HandleDisconnect removes the session from all hub state. If it was mid-chat
// the partner is told the chat ended.
func (h *Hub) HandleDisconnect(sessionID string) {
	var outs []outbound

	h.mu.Lock()
	if _, known := h.states[sessionID]; !known {
		h.mu.Unlock()
		return
	}
	delete(h.states, sessionID)
	h.queues.Remove(sessionID)
	h.updateQueueGauges()
	if r := h.rooms.ByUser(sessionID); r != nil {
		outs = append(outs, h.teardownLocked(r, r.Partner(sessionID))...)
	}
	h.mu.Unlock()

	metrics.ConnectionsActive.Dec()
	h.deliver(outs)
}

// IsBanned exposes the ban set to the transport layer so banned identities
// can be refused at upgrade time.
func (h *Hub) IsBanned(sessionID string) bool {
	return h.bans.IsBanned(sessionID)
}

// StateOf returns the session's lifecycle state and whether it is known.
func (h *Hub) StateOf(sessionID string) (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.states[sessionID]
	return s, ok
}

// teardownLocked destroys the room, drops its message history, resets both
// participants to idle, and returns chat_ended notifications for the given
// recipients. Callers must hold h.mu.
func (h *Hub) teardownLocked(r *room.Room, notify ...string) []outbound {
	if h.rooms.Destroy(r.ID) == nil {
		return nil
	}
	h.buffer.Drop(r.ID)
	for _, id := range []string{r.UserA, r.UserB} {
		if _, known := h.states[id]; known {
			h.states[id] = StateIdle
		}
	}
	metrics.ActiveRooms.Set(float64(h.rooms.Count()))

	var outs []outbound
	for _, id := range notify {
		if id == "" {
			continue
		}
		outs = append(outs, h.build(id, protocol.TypeChatEnded, protocol.ChatEndedMsg{})...)
	}
	return outs
}

// relayToPartner forwards a server message to the room partner, verifying
// room membership first. Messages for unknown or foreign rooms are dropped.
func (h *Hub) relayToPartner(sessionID, roomID, msgType string, payload interface{}) {
	h.mu.Lock()
	r := h.rooms.Get(roomID)
	if r == nil || !r.IsParticipant(sessionID) {
		h.mu.Unlock()
		return
	}
	partner := r.Partner(sessionID)
	h.mu.Unlock()

	h.deliver(h.build(partner, msgType, payload))
}

// updateQueueGauges refreshes the queue size metrics. Callers must hold h.mu.
func (h *Hub) updateQueueGauges() {
	metrics.QueueSize.WithLabelValues(string(matching.ChatText)).Set(float64(h.queues.Len(matching.ChatText)))
	metrics.QueueSize.WithLabelValues(string(matching.ChatVideo)).Set(float64(h.queues.Len(matching.ChatVideo)))
}

// build encodes a server message for one recipient. Encoding failures are
// logged and produce no delivery; payloads are our own structs, so this only
// fires on a programming error.
func (h *Hub) build(to, msgType string, payload interface{}) []outbound {
	data, err := protocol.NewServerMessage(msgType, payload)
	if err != nil {
		log.Printf("[hub] encode %s failed: %v", msgType, err)
		return nil
	}
	return []outbound{{to: to, data: data}}
}

// sendOne encodes and delivers a single message outside the lock.
func (h *Hub) sendOne(to, msgType string, payload interface{}) {
	h.deliver(h.build(to, msgType, payload))
}

// deliver pushes pending messages through the sender. A failed send means the
// session's connection is gone; it is torn down like any other disconnect.
func (h *Hub) deliver(outs []outbound) {
	for _, o := range outs {
		if err := h.sender.Send(o.to, o.data); err != nil {
			log.Printf("[hub] send to %s failed, dropping session: %v", o.to, err)
			h.HandleDisconnect(o.to)
		}
	}
}

func runAudits(audits []func()) {
	for _, fn := range audits {
		fn()
	}
}

func mimeAllowed(mimeType string) bool {
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	_, ok := allowedMime[mimeType]
	return ok
}
