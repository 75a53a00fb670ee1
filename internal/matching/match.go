package matching

import "sort"

// FindMatch scans candidates in insertion order and returns the first entry
// compatible with the requester, or nil if none qualifies. First-fit over
// queue order is deliberate: it favors low latency and wait-time fairness
// over best-overlap ranking, and it is deterministic.
//
// A candidate is compatible when all of the following hold:
//
//  1. It is not the requester itself.
//  2. Interests overlap, unless either side declared none (an empty interest
//     set means "open pool").
//  3. The requester's desired country/gender accept the candidate's self
//     profile. A candidate without a profile is accepted — unknown is treated
//     as acceptable, not as a mismatch.
//  4. Reciprocally, the candidate's desired filters accept the requester's
//     profile under the same permissive rule.
func FindMatch(requester *Entry, candidates []*Entry) *Entry {
	for _, cand := range candidates {
		if cand.SessionID == requester.SessionID {
			continue
		}
		if !interestsCompatible(requester, cand) {
			continue
		}
		if !accepts(requester.Desired, cand.Profile) {
			continue
		}
		if !accepts(cand.Desired, requester.Profile) {
			continue
		}
		return cand
	}
	return nil
}

// SharedInterests returns the sorted intersection of the two entries'
// interest sets, for inclusion in the match notification.
func SharedInterests(a, b *Entry) []string {
	var shared []string
	for _, tag := range a.Interests {
		if b.HasInterest(tag) {
			shared = append(shared, tag)
		}
	}
	sort.Strings(shared)
	return shared
}

// interestsCompatible applies the open-pool rule: either side with zero
// declared interests matches anyone; otherwise at least one tag must be
// shared. Tags are already lower-cased by NewEntry, so the comparison is
// case-insensitive by construction. The check is symmetric.
func interestsCompatible(a, b *Entry) bool {
	if len(a.Interests) == 0 || len(b.Interests) == 0 {
		return true
	}
	for _, tag := range a.Interests {
		if b.HasInterest(tag) {
			return true
		}
	}
	return false
}

// accepts reports whether the desired filters admit the given profile.
// A FilterAny desire admits everything; a concrete desire admits a profile
// whose field matches, or whose field is unpublished.
func accepts(want Filters, p Profile) bool {
	if want.Country != FilterAny && p.Country != "" && p.Country != want.Country {
		return false
	}
	if want.Gender != FilterAny && p.Gender != "" && p.Gender != want.Gender {
		return false
	}
	return true
}
