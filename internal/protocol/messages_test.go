package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseClientMessage_JoinQueue(t *testing.T) {
	raw := []byte(`{"type":"join_queue","chat_type":"video","interests":["gaming","music"],"country":"de","self_gender":"f"}`)

	msgType, msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeJoinQueue {
		t.Errorf("expected type %q, got %q", TypeJoinQueue, msgType)
	}

	join, ok := msg.(JoinQueueMsg)
	if !ok {
		t.Fatalf("expected JoinQueueMsg, got %T", msg)
	}
	if join.ChatType != "video" {
		t.Errorf("expected chat_type video, got %q", join.ChatType)
	}
	if len(join.Interests) != 2 || join.Interests[0] != "gaming" {
		t.Errorf("unexpected interests: %v", join.Interests)
	}
	if join.Country != "de" || join.SelfGender != "f" {
		t.Errorf("filters not decoded: %+v", join)
	}
}

func TestParseClientMessage_SignalPayloadIsOpaque(t *testing.T) {
	raw := []byte(`{"type":"signal","room":"r1","payload":{"sdp":"v=0...","kind":"offer"}}`)

	_, msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig, ok := msg.(SignalMsg)
	if !ok {
		t.Fatalf("expected SignalMsg, got %T", msg)
	}
	if !strings.Contains(string(sig.Payload), `"sdp"`) {
		t.Errorf("payload not preserved verbatim: %s", sig.Payload)
	}
}

func TestParseClientMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"invalid json", `{not json`},
		{"missing type", `{"room":"r1"}`},
		{"unknown type", `{"type":"teleport"}`},
		{"server-only type", `{"type":"match_found"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseClientMessage([]byte(tt.raw)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewServerMessage_InjectsType(t *testing.T) {
	data, err := NewServerMessage(TypeMatchFound, MatchFoundMsg{
		Room:            "r1",
		SharedInterests: []string{"music"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["type"] != TypeMatchFound {
		t.Errorf("expected type %q, got %v", TypeMatchFound, decoded["type"])
	}
	if decoded["room"] != "r1" {
		t.Errorf("expected room r1, got %v", decoded["room"])
	}
}

func TestEnvelope_PreservesRawBytes(t *testing.T) {
	raw := []byte(`{"type":"message","room":"r1","text":"hello"}`)

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != TypeMessage {
		t.Errorf("expected type %q, got %q", TypeMessage, env.Type)
	}
	if string(env.Raw) != string(raw) {
		t.Errorf("raw bytes not preserved: %s", env.Raw)
	}
}
