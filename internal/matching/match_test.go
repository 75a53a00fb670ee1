package matching

import (
	"reflect"
	"testing"
)

func entry(id string, interests []string, desired Filters, profile Profile) *Entry {
	return NewEntry(id, ChatText, interests, desired, profile)
}

func TestFindMatch_SharedInterest(t *testing.T) {
	alice := entry("alice", []string{"gaming", "music"}, Filters{}, Profile{})
	bob := entry("bob", []string{"music", "travel"}, Filters{}, Profile{})

	m := FindMatch(alice, []*Entry{bob})
	if m == nil {
		t.Fatal("expected a match, got nil")
	}
	if m.SessionID != "bob" {
		t.Errorf("expected bob, got %s", m.SessionID)
	}
}

func TestFindMatch_NoOverlapNoMatch(t *testing.T) {
	alice := entry("alice", []string{"gaming"}, Filters{}, Profile{})
	bob := entry("bob", []string{"cooking"}, Filters{}, Profile{})

	if m := FindMatch(alice, []*Entry{bob}); m != nil {
		t.Errorf("expected no match, got %s", m.SessionID)
	}
}

func TestFindMatch_EmptyInterestsAreOpenPool(t *testing.T) {
	open := entry("open", nil, Filters{}, Profile{})
	tagged := entry("tagged", []string{"gaming"}, Filters{}, Profile{})

	if m := FindMatch(open, []*Entry{tagged}); m == nil {
		t.Error("requester with no interests should match anyone")
	}
	if m := FindMatch(tagged, []*Entry{open}); m == nil {
		t.Error("candidate with no interests should match anyone")
	}
}

func TestFindMatch_SkipsSelf(t *testing.T) {
	alice := entry("alice", nil, Filters{}, Profile{})

	if m := FindMatch(alice, []*Entry{alice}); m != nil {
		t.Error("requester must never match itself")
	}
}

func TestFindMatch_FirstFitInsertionOrder(t *testing.T) {
	req := entry("req", []string{"music"}, Filters{}, Profile{})
	first := entry("first", []string{"music"}, Filters{}, Profile{})
	second := entry("second", []string{"music"}, Filters{}, Profile{})

	m := FindMatch(req, []*Entry{first, second})
	if m == nil || m.SessionID != "first" {
		t.Errorf("expected first-fit over insertion order, got %v", m)
	}
}

func TestFindMatch_CountryFilter(t *testing.T) {
	tests := []struct {
		name      string
		desired   Filters
		candidate Profile
		match     bool
	}{
		{"any accepts everything", Filters{Country: FilterAny}, Profile{Country: "de"}, true},
		{"concrete match", Filters{Country: "de"}, Profile{Country: "de"}, true},
		{"concrete mismatch", Filters{Country: "de"}, Profile{Country: "fr"}, false},
		{"unpublished profile accepted", Filters{Country: "de"}, Profile{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := entry("req", nil, tt.desired, Profile{})
			cand := entry("cand", nil, Filters{}, tt.candidate)

			got := FindMatch(req, []*Entry{cand}) != nil
			if got != tt.match {
				t.Errorf("match = %v, want %v", got, tt.match)
			}
		})
	}
}

func TestFindMatch_FiltersAreReciprocal(t *testing.T) {
	// The requester accepts the candidate, but the candidate wants a
	// different country than the requester publishes.
	req := entry("req", nil, Filters{}, Profile{Country: "us"})
	cand := entry("cand", nil, Filters{Country: "de"}, Profile{Country: "de"})

	if m := FindMatch(req, []*Entry{cand}); m != nil {
		t.Error("candidate's filters must also accept the requester")
	}
}

func TestFindMatch_GenderFilter(t *testing.T) {
	req := entry("req", nil, Filters{Gender: "f"}, Profile{})
	match := entry("match", nil, Filters{}, Profile{Gender: "f"})
	mismatch := entry("mismatch", nil, Filters{}, Profile{Gender: "m"})

	if m := FindMatch(req, []*Entry{mismatch}); m != nil {
		t.Error("expected gender mismatch to be skipped")
	}
	if m := FindMatch(req, []*Entry{mismatch, match}); m == nil || m.SessionID != "match" {
		t.Errorf("expected the matching candidate, got %v", m)
	}
}

func TestSharedInterests_SortedIntersection(t *testing.T) {
	a := entry("a", []string{"zebra", "music", "gaming"}, Filters{}, Profile{})
	b := entry("b", []string{"music", "zebra", "cooking"}, Filters{}, Profile{})

	got := SharedInterests(a, b)
	want := []string{"music", "zebra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
