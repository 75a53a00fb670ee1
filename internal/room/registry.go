// Package room tracks the ephemeral two-party rooms produced by successful
// matches. A room exists from match to teardown and is never reused; a "next"
// action always creates a brand-new room.
//
// Like the matching queues, the registry is not self-synchronizing — the hub
// serializes all access under its mutex.
package room

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/strangerconnect/pairing/internal/matching"
)

// ErrInvalidPair is returned when a room is requested for a single identity
// paired with itself. The matcher never returns a self-match, so hitting this
// indicates a programming error upstream.
var ErrInvalidPair = errors.New("room: cannot pair an identity with itself")

// Room is an active chat session between exactly two identities.
type Room struct {
	ID              string
	UserA           string
	UserB           string
	ChatType        matching.ChatType
	SharedInterests []string
	CreatedAt       time.Time
}

// Partner returns the other participant's session ID, or "" if the given
// session is not a participant.
func (r *Room) Partner(sessionID string) string {
	switch sessionID {
	case r.UserA:
		return r.UserB
	case r.UserB:
		return r.UserA
	}
	return ""
}

// IsParticipant reports whether the session is part of this room.
func (r *Room) IsParticipant(sessionID string) bool {
	return sessionID == r.UserA || sessionID == r.UserB
}

// Registry maps room IDs to rooms and participants to their current room.
type Registry struct {
	rooms  map[string]*Room
	byUser map[string]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		byUser: make(map[string]*Room),
	}
}

// Create makes a new room for the two identities. Room IDs are random UUIDs
// rather than a concatenation of the participant IDs, so an identity
// containing a separator character can never collide with another pair.
func (reg *Registry) Create(a, b string, t matching.ChatType, shared []string) (*Room, error) {
	if a == b {
		return nil, ErrInvalidPair
	}

	r := &Room{
		ID:              uuid.New().String(),
		UserA:           a,
		UserB:           b,
		ChatType:        t,
		SharedInterests: shared,
		CreatedAt:       time.Now(),
	}
	reg.rooms[r.ID] = r
	reg.byUser[a] = r
	reg.byUser[b] = r
	return r, nil
}

// Get returns the room with the given ID, or nil if it does not exist.
func (reg *Registry) Get(roomID string) *Room {
	return reg.rooms[roomID]
}

// ByUser returns the room the session currently participates in, or nil.
func (reg *Registry) ByUser(sessionID string) *Room {
	return reg.byUser[sessionID]
}

// Destroy removes the room and returns it so the caller can notify the former
// participants. Destroy is idempotent: tearing down an already-absent room
// returns nil and changes nothing, which lets end-chat race a disconnect
// without error.
func (reg *Registry) Destroy(roomID string) *Room {
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil
	}
	delete(reg.rooms, roomID)
	if reg.byUser[r.UserA] == r {
		delete(reg.byUser, r.UserA)
	}
	if reg.byUser[r.UserB] == r {
		delete(reg.byUser, r.UserB)
	}
	return r
}

// Count returns the number of active rooms.
func (reg *Registry) Count() int {
	return len(reg.rooms)
}
