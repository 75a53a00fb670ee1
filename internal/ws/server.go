// Package ws is the WebSocket transport for the pairing server. It upgrades
// HTTP connections, tracks live sessions, and feeds complete text frames to
// the application layer through callbacks. I/O readiness is multiplexed with
// epoll on Linux and a goroutine fallback elsewhere.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/strangerconnect/pairing/internal/protocol"
)

// Config holds the transport's tunable parameters.
type Config struct {
	ListenAddr     string        // address to listen on, e.g. ":8080"
	WorkerPoolSize int           // max concurrent read-worker goroutines
	MaxConnections int           // hard cap on total connections
	ReadTimeout    time.Duration // per-frame read deadline
	WriteTimeout   time.Duration // per-frame write deadline
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     ":8080",
		WorkerPoolSize: 256,
		MaxConnections: 100000,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Gate decides whether an upgrade request may proceed. It returns a non-nil
// error with an HTTP status to refuse the connection; the per-IP connection
// rate limiter plugs in here.
type Gate func(r *http.Request) (status int, err error)

// Server accepts WebSocket connections and pumps inbound frames to the
// application. Upgraded connections are registered with the poller; the event
// loop hands ready connections to a bounded worker pool for frame reads.
type Server struct {
	config Config
	poller *Poller
	conns  *ConnectionManager

	workerPool chan struct{} // semaphore bounding concurrent read workers

	onMessage    func(conn *Connection, data []byte)
	onConnect    func(sessionID string)
	onDisconnect func(sessionID string)
	gate         Gate

	httpServer *http.Server
	done       chan struct{}
	startedAt  time.Time
}

// NewServer creates a Server. onMessage is called from a worker goroutine for
// every complete text frame received.
func NewServer(config Config, onMessage func(conn *Connection, data []byte)) *Server {
	return &Server{
		config:     config,
		conns:      NewConnectionManager(),
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		onMessage:  onMessage,
		done:       make(chan struct{}),
	}
}

// SetOnConnect registers a callback invoked after a connection is upgraded
// and its session_created message has been sent.
func (s *Server) SetOnConnect(fn func(sessionID string)) {
	s.onConnect = fn
}

// SetOnDisconnect registers a callback invoked when a connection is removed,
// whether by read error, heartbeat timeout, or graceful close.
func (s *Server) SetOnDisconnect(fn func(sessionID string)) {
	s.onDisconnect = fn
}

// SetGate installs an upgrade admission check.
func (s *Server) SetGate(g Gate) {
	s.gate = g
}

// Start creates the poller, starts the event loop and heartbeat, and blocks
// serving HTTP until Shutdown.
func (s *Server) Start() error {
	var err error
	s.poller, err = NewPoller()
	if err != nil {
		return fmt.Errorf("ws: failed to create poller: %w", err)
	}

	s.startedAt = time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    s.config.ListenAddr,
		Handler: mux,
	}

	go s.eventLoop()
	StartHeartbeat(s, DefaultHeartbeatConfig())

	log.Printf("[ws] listening on %s (workers=%d, max_conns=%d)",
		s.config.ListenAddr, s.config.WorkerPoolSize, s.config.MaxConnections)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ws: http server error: %w", err)
	}
	return nil
}

// handleUpgrade admits, upgrades and registers a new client connection, then
// sends it its session ID.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.conns.Count() >= s.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if s.gate != nil {
		if status, err := s.gate(r); err != nil {
			http.Error(w, err.Error(), status)
			return
		}
	}

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}

	sessionID := uuid.New().String()
	c := &Connection{
		ID:            sessionID,
		Conn:          conn,
		Fd:            socketFD(conn),
		RemoteIP:      remoteIP(r),
		EstablishedAt: time.Now(),
	}
	c.Touch()

	s.conns.Add(c)
	if err := s.poller.Add(conn); err != nil {
		log.Printf("[ws] poller add failed session=%s: %v", sessionID, err)
		s.conns.Remove(sessionID)
		return
	}

	created, err := protocol.NewServerMessage(protocol.TypeSessionCreated, protocol.SessionCreatedMsg{
		SessionID: sessionID,
	})
	if err != nil {
		log.Printf("[ws] failed to build session_created session=%s: %v", sessionID, err)
	} else if err := c.WriteMessage(created); err != nil {
		log.Printf("[ws] failed to send session_created session=%s: %v", sessionID, err)
	}

	if s.onConnect != nil {
		s.onConnect(sessionID)
	}

	log.Printf("[ws] new connection session=%s (total=%d)", sessionID, s.conns.Count())
}

// handleHealth reports liveness plus connection count and uptime, for load
// balancer health checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
		Uptime      string `json:"uptime"`
	}{
		Status:      "ok",
		Connections: s.conns.Count(),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// eventLoop waits on the poller and dispatches ready connections to workers.
func (s *Server) eventLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		conns, err := s.poller.Wait()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				// EINTR is expected during signal delivery.
				if isEINTR(err) {
					continue
				}
				log.Printf("[ws] poller wait error: %v", err)
				continue
			}
		}

		for _, conn := range conns {
			conn := conn

			s.workerPool <- struct{}{}
			go func() {
				defer func() { <-s.workerPool }()
				s.readFrame(conn)
			}()
		}
	}
}

// readFrame reads one WebSocket frame from a ready connection. Control frames
// are handled here; data frames go to the onMessage callback. A failed read
// tears the connection down.
func (s *Server) readFrame(netConn net.Conn) {
	c := s.conns.GetByConn(netConn)
	if c == nil {
		return
	}

	// Level-triggered polling can dispatch the same fd twice.
	if !atomic.CompareAndSwapInt32(&c.reading, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&c.reading, 0)

	if s.config.ReadTimeout > 0 {
		_ = netConn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}

	header, reader, err := wsutil.NextReader(netConn, ws.StateServerSide)
	if err != nil {
		// A timeout means a stale dispatch with no data pending; the
		// heartbeat owns dead-connection detection.
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return
		}
		s.RemoveConnection(c)
		return
	}
	_ = netConn.SetReadDeadline(time.Time{})

	c.Touch()

	if header.OpCode.IsControl() {
		if header.OpCode == ws.OpClose {
			s.RemoveConnection(c)
		}
		return
	}

	data := make([]byte, header.Length)
	if header.Length > 0 {
		if _, err := io.ReadFull(reader, data); err != nil {
			s.RemoveConnection(c)
			return
		}
	}
	if len(data) == 0 {
		return
	}

	if s.onMessage != nil {
		s.onMessage(c, data)
	}
}

// RemoveConnection evicts a connection from the poller and the registry and
// closes its socket. Exported so the heartbeat can evict dead connections.
func (s *Server) RemoveConnection(c *Connection) {
	_ = s.poller.Remove(c.Conn)

	// Racing cleanup paths both call in here; only the one that actually
	// removed the entry runs the disconnect callback.
	if !s.conns.Remove(c.ID) {
		return
	}

	if s.onDisconnect != nil {
		s.onDisconnect(c.ID)
	}

	log.Printf("[ws] connection closed session=%s (total=%d)", c.ID, s.conns.Count())
}

// Send writes a text frame to the session's connection. Safe for concurrent
// use via the per-connection write mutex.
func (s *Server) Send(sessionID string, data []byte) error {
	c := s.conns.Get(sessionID)
	if c == nil {
		return fmt.Errorf("ws: connection %s not found", sessionID)
	}

	if s.config.WriteTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	err := c.WriteMessage(data)
	_ = c.Conn.SetWriteDeadline(time.Time{})
	return err
}

// Connections exposes the registry to the heartbeat monitor.
func (s *Server) Connections() *ConnectionManager {
	return s.conns
}

// Shutdown stops the listener and the event loop and closes every connection.
func (s *Server) Shutdown() error {
	log.Println("[ws] shutting down...")

	close(s.done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("[ws] http shutdown error: %v", err)
	}

	for _, c := range s.conns.All() {
		_ = s.poller.Remove(c.Conn)
		c.Close()
	}
	if s.poller != nil {
		_ = s.poller.Close()
	}

	log.Printf("[ws] stopped, all connections closed")
	return nil
}

// remoteIP strips the port from the request's remote address.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isEINTR reports whether the error is an interrupted syscall, which the
// event loop should simply retry.
func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	return err.Error() == "interrupted system call" || err.Error() == "errno 4"
}
