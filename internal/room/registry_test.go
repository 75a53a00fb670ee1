package room

import (
	"testing"

	"github.com/strangerconnect/pairing/internal/matching"
)

func TestCreate_AssignsUniqueIDs(t *testing.T) {
	reg := NewRegistry()

	r1, err := reg.Create("a", "b", matching.ChatText, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := reg.Create("c", "d", matching.ChatText, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r1.ID == "" || r2.ID == "" {
		t.Fatal("expected non-empty room IDs")
	}
	if r1.ID == r2.ID {
		t.Errorf("expected distinct room IDs, both were %s", r1.ID)
	}
	if reg.Count() != 2 {
		t.Errorf("expected 2 rooms, got %d", reg.Count())
	}
}

func TestCreate_RejectsSelfPair(t *testing.T) {
	reg := NewRegistry()

	if _, err := reg.Create("a", "a", matching.ChatText, nil); err != ErrInvalidPair {
		t.Errorf("expected ErrInvalidPair, got %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("expected no rooms after failed create, got %d", reg.Count())
	}
}

func TestPartner(t *testing.T) {
	reg := NewRegistry()
	r, _ := reg.Create("a", "b", matching.ChatVideo, nil)

	if got := r.Partner("a"); got != "b" {
		t.Errorf("Partner(a) = %q, want b", got)
	}
	if got := r.Partner("b"); got != "a" {
		t.Errorf("Partner(b) = %q, want a", got)
	}
	if got := r.Partner("stranger"); got != "" {
		t.Errorf("Partner(stranger) = %q, want empty", got)
	}
}

func TestByUser(t *testing.T) {
	reg := NewRegistry()
	r, _ := reg.Create("a", "b", matching.ChatText, nil)

	if got := reg.ByUser("a"); got != r {
		t.Error("expected ByUser(a) to return the room")
	}
	if got := reg.ByUser("b"); got != r {
		t.Error("expected ByUser(b) to return the room")
	}
	if got := reg.ByUser("c"); got != nil {
		t.Error("expected ByUser(c) to return nil")
	}
}

func TestDestroy_IsIdempotent(t *testing.T) {
	reg := NewRegistry()
	r, _ := reg.Create("a", "b", matching.ChatText, nil)

	if got := reg.Destroy(r.ID); got != r {
		t.Error("expected Destroy to return the destroyed room")
	}
	if got := reg.Destroy(r.ID); got != nil {
		t.Error("expected second Destroy to return nil")
	}
	if reg.ByUser("a") != nil || reg.ByUser("b") != nil {
		t.Error("expected participants unmapped after destroy")
	}
}

func TestDestroy_DoesNotUnmapNewerRoom(t *testing.T) {
	reg := NewRegistry()
	old, _ := reg.Create("a", "b", matching.ChatText, nil)

	// "a" is already in a newer room by the time the old teardown lands.
	newer, _ := reg.Create("a", "c", matching.ChatText, nil)

	reg.Destroy(old.ID)
	if got := reg.ByUser("a"); got != newer {
		t.Error("destroying a stale room must not unmap the user's current room")
	}
}
