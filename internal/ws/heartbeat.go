package ws

import (
	"log"
	"time"
)

// HeartbeatConfig tunes the dead-connection monitor.
type HeartbeatConfig struct {
	Interval time.Duration // ping cadence
	Timeout  time.Duration // grace period after a ping before eviction
}

// DefaultHeartbeatConfig returns the default cadence.
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: 30 * time.Second,
		Timeout:  10 * time.Second,
	}
}

// StartHeartbeat launches a background goroutine that pings every connection
// on a ticker and evicts those with no inbound activity within
// Interval + Timeout. The goroutine exits when the server shuts down.
func StartHeartbeat(server *Server, config HeartbeatConfig) {
	go func() {
		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-server.done:
				return
			case <-ticker.C:
				sweepConnections(server, config)
			}
		}
	}()
}

// sweepConnections evicts stale connections and pings the rest. Browsers
// answer the protocol-level ping automatically, so a healthy client needs no
// application cooperation to stay alive.
func sweepConnections(server *Server, config HeartbeatConfig) {
	deadline := config.Interval + config.Timeout
	now := time.Now()

	for _, c := range server.Connections().All() {
		if idle := now.Sub(c.LastSeen()); idle > deadline {
			log.Printf("[ws] heartbeat timeout session=%s idle=%s", c.ID, idle.Round(time.Second))
			server.RemoveConnection(c)
			continue
		}

		if err := c.WritePing(); err != nil {
			log.Printf("[ws] heartbeat ping failed session=%s: %v", c.ID, err)
			server.RemoveConnection(c)
		}
	}
}
