// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeJoinQueue  = "join_queue"
	TypeEndChat    = "end_chat"
	TypeMessage    = "message"
	TypeTyping     = "typing"
	TypeStopTyping = "stop_typing"
	TypeSignal     = "signal"
	TypeFileShare  = "file_share"
	TypeRaiseHand  = "raise_hand"
	TypeLowerHand  = "lower_hand"
	TypeReport     = "report"
	TypePing       = "ping"
)

// Server -> Client message types.
const (
	TypeSessionCreated    = "session_created"
	TypeWaiting           = "waiting"
	TypeMatchFound        = "match_found"
	TypeReceiveMessage    = "receive_message"
	TypePartnerTyping     = "partner_typing"
	TypePartnerStopTyping = "partner_stop_typing"
	TypeFileReceived      = "file_received"
	TypeHandRaised        = "hand_raised"
	TypeHandLowered       = "hand_lowered"
	TypeChatEnded         = "chat_ended"
	TypeBanned            = "banned"
	TypeRateLimited       = "rate_limited"
	TypeError             = "error"
	TypePong              = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// JoinQueueMsg is sent by the client to enter the matching queue for a chat
// type with optional interest tags and desired partner filters. SelfCountry
// and SelfGender let the client publish its own profile so that other users'
// filters can be honored.
type JoinQueueMsg struct {
	Type        string   `json:"type"`
	ChatType    string   `json:"chat_type"` // "text" or "video"
	Interests   []string `json:"interests"`
	Country     string   `json:"country,omitempty"` // desired partner country, "any" if empty
	Gender      string   `json:"gender,omitempty"`  // desired partner gender, "any" if empty
	SelfCountry string   `json:"self_country,omitempty"`
	SelfGender  string   `json:"self_gender,omitempty"`
}

// EndChatMsg is sent by the client to end the current chat session.
type EndChatMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// ChatMsg is a text message sent by the client within a room.
type ChatMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Text string `json:"text"`
}

// TypingMsg signals that the client started typing.
type TypingMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// StopTypingMsg signals that the client stopped typing.
type StopTypingMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// SignalMsg carries an opaque WebRTC signaling body (offer, answer or ICE
// candidate). The server relays Payload without inspecting it.
type SignalMsg struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// FileMeta describes a shared file. Data is the base64-encoded content.
type FileMeta struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// FileShareMsg is sent by the client to share a file with the partner.
type FileShareMsg struct {
	Type string   `json:"type"`
	Room string   `json:"room"`
	File FileMeta `json:"file"`
}

// RaiseHandMsg signals the client raised a hand in a video chat.
type RaiseHandMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// LowerHandMsg signals the client lowered a raised hand.
type LowerHandMsg struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// ReportMsg is sent by the client to report the chat partner.
type ReportMsg struct {
	Type   string `json:"type"`
	Room   string `json:"room"`
	Reason string `json:"reason,omitempty"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent by the server when a new session is established.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// WaitingMsg confirms the client is queued and no partner is available yet.
type WaitingMsg struct {
	Type string `json:"type"`
}

// MatchFoundMsg is sent to both users when a compatible partner is found.
type MatchFoundMsg struct {
	Type            string   `json:"type"`
	Room            string   `json:"room"`
	SharedInterests []string `json:"shared_interests,omitempty"`
}

// ReceiveMessageMsg is a chat message delivered by the server to every room
// participant, including the original sender.
type ReceiveMessageMsg struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// PartnerTypingMsg relays that the partner started typing.
type PartnerTypingMsg struct {
	Type string `json:"type"`
}

// PartnerStopTypingMsg relays that the partner stopped typing.
type PartnerStopTypingMsg struct {
	Type string `json:"type"`
}

// ServerSignalMsg relays an opaque signaling payload to the partner.
type ServerSignalMsg struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	From    string          `json:"from"`
}

// FileReceivedMsg delivers a shared file's metadata and content to the partner.
type FileReceivedMsg struct {
	Type string   `json:"type"`
	From string   `json:"from"`
	File FileMeta `json:"file"`
}

// HandRaisedMsg relays that the partner raised a hand.
type HandRaisedMsg struct {
	Type string `json:"type"`
}

// HandLoweredMsg relays that the partner lowered a raised hand.
type HandLoweredMsg struct {
	Type string `json:"type"`
}

// ChatEndedMsg is sent when the partner ended the chat or disconnected.
type ChatEndedMsg struct {
	Type string `json:"type"`
}

// BannedMsg is sent when the client's join request is rejected because the
// session has been banned.
type BannedMsg struct {
	Type string `json:"type"`
}

// RateLimitedMsg is sent when the client has been rate-limited.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeJoinQueue:
		var m JoinQueueMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeEndChat:
		var m EndChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeMessage:
		var m ChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeStopTyping:
		var m StopTypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSignal:
		var m SignalMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeFileShare:
		var m FileShareMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRaiseHand:
		var m RaiseHandMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeLowerHand:
		var m LowerHandMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeReport:
		var m ReportMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
