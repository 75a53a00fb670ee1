package matching

import (
	"reflect"
	"testing"
)

func TestNewEntry_NormalizesInterests(t *testing.T) {
	e := NewEntry("alice", ChatText, []string{" Gaming ", "MUSIC", "gaming", "", "music"}, Filters{}, Profile{})

	want := []string{"gaming", "music"}
	if !reflect.DeepEqual(e.Interests, want) {
		t.Errorf("expected interests %v, got %v", want, e.Interests)
	}
	if !e.HasInterest("gaming") {
		t.Error("expected HasInterest(gaming) to be true")
	}
	if e.HasInterest("Gaming") {
		t.Error("HasInterest takes lower-cased tags; raw input should not match")
	}
}

func TestNewEntry_DefaultsEmptyFiltersToAny(t *testing.T) {
	e := NewEntry("alice", ChatVideo, nil, Filters{}, Profile{})

	if e.Desired.Country != FilterAny {
		t.Errorf("expected country filter %q, got %q", FilterAny, e.Desired.Country)
	}
	if e.Desired.Gender != FilterAny {
		t.Errorf("expected gender filter %q, got %q", FilterAny, e.Desired.Gender)
	}
}

func TestChatType_Valid(t *testing.T) {
	tests := []struct {
		in    ChatType
		valid bool
	}{
		{ChatText, true},
		{ChatVideo, true},
		{ChatType("voice"), false},
		{ChatType(""), false},
	}
	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.valid {
			t.Errorf("ChatType(%q).Valid() = %v, want %v", tt.in, got, tt.valid)
		}
	}
}

func TestQueues_EnqueueIsExclusiveAcrossTypes(t *testing.T) {
	q := NewQueues()

	q.Enqueue(NewEntry("alice", ChatText, nil, Filters{}, Profile{}))
	q.Enqueue(NewEntry("alice", ChatVideo, nil, Filters{}, Profile{}))

	if q.Len(ChatText) != 0 {
		t.Errorf("expected text queue empty after re-enqueue, got %d", q.Len(ChatText))
	}
	if q.Len(ChatVideo) != 1 {
		t.Errorf("expected video queue length 1, got %d", q.Len(ChatVideo))
	}
}

func TestQueues_EnqueuePreservesFIFOOrder(t *testing.T) {
	q := NewQueues()
	for _, id := range []string{"a", "b", "c"} {
		q.Enqueue(NewEntry(id, ChatText, nil, Filters{}, Profile{}))
	}

	entries := q.Entries(ChatText)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []string{"a", "b", "c"} {
		if entries[i].SessionID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, entries[i].SessionID)
		}
	}
}

func TestQueues_Remove(t *testing.T) {
	q := NewQueues()
	q.Enqueue(NewEntry("alice", ChatText, nil, Filters{}, Profile{}))

	if !q.Remove("alice") {
		t.Error("expected Remove to report an entry was removed")
	}
	if q.Remove("alice") {
		t.Error("expected second Remove to be a no-op")
	}
	if q.Get("alice") != nil {
		t.Error("expected Get to return nil after removal")
	}
}
