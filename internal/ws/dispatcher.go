package ws

import (
	"log"

	"github.com/strangerconnect/pairing/internal/protocol"
)

// MessageHandler handles one parsed client message. msg is the concrete
// struct produced by protocol.ParseClientMessage for the registered type.
type MessageHandler func(conn *Connection, msg interface{})

// LimitFunc is consulted before a message is dispatched. Returning false
// suppresses the handler; retryAfter (seconds) is reported to the client.
type LimitFunc func(sessionID, msgType string) (ok bool, retryAfter int)

// Dispatcher routes inbound frames to handlers by message type. Client pings
// are answered internally; malformed or unregistered messages get a
// structured error response.
type Dispatcher struct {
	handlers map[string]MessageHandler
	limit    LimitFunc
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]MessageHandler)}
}

// Register binds a handler to a message type, replacing any previous one.
func (d *Dispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// SetLimit installs a rate-limit check applied before dispatch.
func (d *Dispatcher) SetLimit(fn LimitFunc) {
	d.limit = fn
}

// Dispatch parses raw frame bytes and routes them. It is the server's
// onMessage callback.
func (d *Dispatcher) Dispatch(conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.Printf("[ws] dispatch parse error session=%s: %v", conn.ID, err)
		d.sendError(conn, "parse_error", "invalid message format")
		return
	}

	// Keepalive is handled here so it can never be rate-limited away.
	if msgType == protocol.TypePing {
		d.sendPong(conn)
		return
	}

	if d.limit != nil {
		if ok, retryAfter := d.limit(conn.ID, msgType); !ok {
			d.sendRateLimited(conn, retryAfter)
			return
		}
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		log.Printf("[ws] unsupported message type=%q session=%s", msgType, conn.ID)
		d.sendError(conn, "unsupported_type", "unsupported message type")
		return
	}

	handler(conn, msg)
}

func (d *Dispatcher) sendError(conn *Connection, code, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("[ws] failed to build error message session=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("[ws] failed to send error message session=%s: %v", conn.ID, err)
	}
}

func (d *Dispatcher) sendRateLimited(conn *Connection, retryAfter int) {
	data, err := protocol.NewServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
		RetryAfter: retryAfter,
	})
	if err != nil {
		log.Printf("[ws] failed to build rate_limited message session=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("[ws] failed to send rate_limited message session=%s: %v", conn.ID, err)
	}
}

func (d *Dispatcher) sendPong(conn *Connection) {
	conn.Touch()

	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		log.Printf("[ws] failed to build pong session=%s: %v", conn.ID, err)
		return
	}
	if err := conn.WriteMessage(data); err != nil {
		log.Printf("[ws] failed to send pong session=%s: %v", conn.ID, err)
	}
}
