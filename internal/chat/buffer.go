package chat

import (
	"sync"
	"time"
)

// DefaultBufferDepth is how many recent messages are retained per room.
const DefaultBufferDepth = 5

// Message is a relayed chat message retained for report context.
type Message struct {
	From   string    `json:"from"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// Buffer retains the last few messages of each active room so that an abuse
// report can carry a snapshot of the conversation. Entries are dropped when
// the room is torn down; nothing here outlives the room.
type Buffer struct {
	mu    sync.Mutex
	depth int
	rooms map[string][]Message
}

// NewBuffer creates a buffer retaining depth messages per room. A depth of
// zero or less falls back to DefaultBufferDepth.
func NewBuffer(depth int) *Buffer {
	if depth <= 0 {
		depth = DefaultBufferDepth
	}
	return &Buffer{
		depth: depth,
		rooms: make(map[string][]Message),
	}
}

// Record appends a message to the room's history, evicting the oldest entry
// once the room is at depth.
func (b *Buffer) Record(roomID, from, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := append(b.rooms[roomID], Message{From: from, Text: text, SentAt: time.Now()})
	if len(msgs) > b.depth {
		msgs = msgs[len(msgs)-b.depth:]
	}
	b.rooms[roomID] = msgs
}

// Snapshot returns a copy of the room's retained messages, oldest first.
func (b *Buffer) Snapshot(roomID string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	msgs := b.rooms[roomID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Drop discards the room's history. Called on room teardown.
func (b *Buffer) Drop(roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rooms, roomID)
}
