// Package ban tracks abuse reports per session and maintains the ban set.
// State is in-memory and lives for the process lifetime; bans never expire
// and report counts are never decremented.
package ban

import "sync"

// AutoBanThreshold is the number of distinct reporters that triggers an
// automatic ban.
const AutoBanThreshold = 3

// Tracker counts reports against identities and bans those that cross the
// threshold. Reports are deduplicated by reporter: the same partner reporting
// the same target across repeated encounters only counts once.
type Tracker struct {
	mu        sync.Mutex
	reporters map[string]map[string]struct{} // target -> set of reporters
	banned    map[string]struct{}
}

// NewTracker creates an empty report tracker.
func NewTracker() *Tracker {
	return &Tracker{
		reporters: make(map[string]map[string]struct{}),
		banned:    make(map[string]struct{}),
	}
}

// Report records that reporter filed a report against target. It returns true
// if this report caused the target to be banned (the count reached the
// threshold on this call). Reports against an already-banned target are
// recorded but return false.
func (t *Tracker) Report(target, reporter string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.reporters[target]
	if !ok {
		set = make(map[string]struct{})
		t.reporters[target] = set
	}
	set[reporter] = struct{}{}

	if _, already := t.banned[target]; already {
		return false
	}
	if len(set) >= AutoBanThreshold {
		t.banned[target] = struct{}{}
		return true
	}
	return false
}

// IsBanned reports whether the identity is banned.
func (t *Tracker) IsBanned(sessionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.banned[sessionID]
	return ok
}

// Count returns the number of distinct reporters recorded against the
// identity.
func (t *Tracker) Count(sessionID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.reporters[sessionID])
}

// BanCount returns the size of the ban set.
func (t *Tracker) BanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.banned)
}
