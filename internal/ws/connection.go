package ws

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Connection is a single client WebSocket connection. Outbound frames are
// serialized through a per-connection mutex so the hub, the heartbeat and the
// dispatcher can all write without interleaving frame bytes.
type Connection struct {
	ID            string   // session ID (UUID), assigned at upgrade
	Conn          net.Conn // underlying TCP connection
	Fd            int      // file descriptor for poller lookups
	RemoteIP      string   // client IP, for connection rate limiting
	EstablishedAt time.Time
	lastSeen      int64 // unix nanos of last inbound activity, atomic

	writeMu sync.Mutex
	reading int32 // atomic flag guarding duplicate poller dispatch
}

// Touch records inbound activity on the connection. Any received frame,
// including pings, counts as proof of life for the heartbeat.
func (c *Connection) Touch() {
	atomic.StoreInt64(&c.lastSeen, time.Now().UnixNano())
}

// LastSeen returns the time of the most recent inbound activity.
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, atomic.LoadInt64(&c.lastSeen))
}

// WriteMessage sends a text frame to this connection.
func (c *Connection) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerMessage(c.Conn, ws.OpText, data)
}

// WritePing sends a protocol-level ping frame (opcode 0x9). Browsers answer
// these automatically with a pong.
func (c *Connection) WritePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteFrame(c.Conn, ws.NewPingFrame(nil))
}

// Close closes the underlying network connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ConnectionManager is a goroutine-safe registry with O(1) lookup by session
// ID and by file descriptor.
type ConnectionManager struct {
	mu   sync.RWMutex
	byID map[string]*Connection
	byFd map[int]*Connection
}

// NewConnectionManager creates an empty registry.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byID: make(map[string]*Connection),
		byFd: make(map[int]*Connection),
	}
}

// Add registers a connection under both its session ID and fd.
func (cm *ConnectionManager) Add(c *Connection) {
	cm.mu.Lock()
	cm.byID[c.ID] = c
	cm.byFd[c.Fd] = c
	cm.mu.Unlock()
}

// Remove deletes the connection by session ID and closes its socket. It
// returns false if the connection was already gone, which lets racing cleanup
// paths (read error vs heartbeat timeout) detect that the other side won.
func (cm *ConnectionManager) Remove(id string) bool {
	cm.mu.Lock()
	c, ok := cm.byID[id]
	if ok {
		delete(cm.byID, id)
		delete(cm.byFd, c.Fd)
	}
	cm.mu.Unlock()

	if ok {
		c.Close()
	}
	return ok
}

// Get returns the connection for a session ID, or nil.
func (cm *ConnectionManager) Get(id string) *Connection {
	cm.mu.RLock()
	c := cm.byID[id]
	cm.mu.RUnlock()
	return c
}

// GetByFd returns the connection for a file descriptor, or nil.
func (cm *ConnectionManager) GetByFd(fd int) *Connection {
	cm.mu.RLock()
	c := cm.byFd[fd]
	cm.mu.RUnlock()
	return c
}

// GetByConn resolves a net.Conn back to its Connection via the fd.
func (cm *ConnectionManager) GetByConn(c net.Conn) *Connection {
	return cm.GetByFd(socketFD(c))
}

// Count returns the number of registered connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	n := len(cm.byID)
	cm.mu.RUnlock()
	return n
}

// All returns a snapshot of the current connections, safe to iterate without
// holding the lock.
func (cm *ConnectionManager) All() []*Connection {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.byID))
	for _, c := range cm.byID {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()
	return conns
}
