// Package matching implements the waiting queues and the partner matcher for
// the pairing server. A user joins one of two FIFO queues (text or video)
// with optional interest tags and desired partner filters; the matcher scans
// the queue in insertion order and returns the first compatible candidate.
//
// The types in this package are not self-synchronizing. All mutation is
// funneled through the hub, which holds a single mutex across the whole
// enqueue-match-create sequence so that two concurrent joins can never claim
// the same candidate.
package matching

import (
	"strings"
	"time"
)

// ChatType selects which waiting queue a user joins.
type ChatType string

const (
	ChatText  ChatType = "text"
	ChatVideo ChatType = "video"
)

// Valid reports whether t names a known chat type.
func (t ChatType) Valid() bool {
	return t == ChatText || t == ChatVideo
}

// FilterAny is the wildcard value for desired partner filters.
const FilterAny = "any"

// Filters holds a user's desired partner attributes. Empty fields are
// normalized to FilterAny.
type Filters struct {
	Country string
	Gender  string
}

// Profile holds a user's optional self-declared attributes. Empty fields mean
// the attribute is unknown.
type Profile struct {
	Country string
	Gender  string
}

// Entry is a user's position in a waiting queue.
type Entry struct {
	SessionID string
	ChatType  ChatType
	Interests []string // lower-cased, deduplicated, original join order
	Desired   Filters
	Profile   Profile
	JoinedAt  time.Time

	interestSet map[string]struct{}
}

// NewEntry builds a queue entry, case-normalizing and deduplicating the
// interest tags and defaulting empty filters to FilterAny.
func NewEntry(sessionID string, chatType ChatType, interests []string, desired Filters, profile Profile) *Entry {
	e := &Entry{
		SessionID:   sessionID,
		ChatType:    chatType,
		Desired:     desired,
		Profile:     profile,
		JoinedAt:    time.Now(),
		interestSet: make(map[string]struct{}, len(interests)),
	}
	if e.Desired.Country == "" {
		e.Desired.Country = FilterAny
	}
	if e.Desired.Gender == "" {
		e.Desired.Gender = FilterAny
	}
	for _, tag := range interests {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := e.interestSet[tag]; ok {
			continue
		}
		e.interestSet[tag] = struct{}{}
		e.Interests = append(e.Interests, tag)
	}
	return e
}

// HasInterest reports whether the entry declared the given (lower-cased) tag.
func (e *Entry) HasInterest(tag string) bool {
	_, ok := e.interestSet[tag]
	return ok
}

// Queues holds the per-chat-type FIFO waiting lists. An identity appears in at
// most one queue at any instant; Enqueue enforces this by evicting any stale
// entry first.
type Queues struct {
	lists map[ChatType][]*Entry
}

// NewQueues creates empty waiting queues for both chat types.
func NewQueues() *Queues {
	return &Queues{
		lists: map[ChatType][]*Entry{
			ChatText:  nil,
			ChatVideo: nil,
		},
	}
}

// Enqueue removes any existing entry for the same identity from both queues,
// then appends the entry to the tail of its chat type's queue.
func (q *Queues) Enqueue(e *Entry) {
	q.Remove(e.SessionID)
	q.lists[e.ChatType] = append(q.lists[e.ChatType], e)
}

// Remove deletes the identity from every queue. It returns true if an entry
// was present.
func (q *Queues) Remove(sessionID string) bool {
	removed := false
	for t, list := range q.lists {
		for i, e := range list {
			if e.SessionID == sessionID {
				q.lists[t] = append(list[:i], list[i+1:]...)
				removed = true
				break
			}
		}
	}
	return removed
}

// Entries returns the current waiting list for a chat type in insertion order.
// The returned slice is the live backing array; callers must not retain it
// across mutations.
func (q *Queues) Entries(t ChatType) []*Entry {
	return q.lists[t]
}

// Get returns the identity's queue entry, or nil if it is not queued.
func (q *Queues) Get(sessionID string) *Entry {
	for _, list := range q.lists {
		for _, e := range list {
			if e.SessionID == sessionID {
				return e
			}
		}
	}
	return nil
}

// Len returns the number of waiting users for a chat type.
func (q *Queues) Len(t ChatType) int {
	return len(q.lists[t])
}
