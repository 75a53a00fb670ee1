// Package metrics exposes Prometheus collectors for the pairing server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive is the number of live WebSocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pairing_connections_active",
		Help: "Number of currently open WebSocket connections.",
	})

	// ConnectionsTotal counts connections accepted since start.
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairing_connections_total",
		Help: "Total WebSocket connections accepted.",
	})

	// QueueSize is the number of users waiting per chat type.
	QueueSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pairing_queue_size",
		Help: "Number of users waiting in the matchmaking queue.",
	}, []string{"chat_type"})

	// ActiveRooms is the number of live rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pairing_rooms_active",
		Help: "Number of currently active rooms.",
	})

	// MatchesTotal counts successful pairings.
	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairing_matches_total",
		Help: "Total successful matches by chat type.",
	}, []string{"chat_type"})

	// MessagesTotal counts chat messages by outcome.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairing_messages_total",
		Help: "Total chat messages processed, by outcome.",
	}, []string{"outcome"}) // relayed, blocked, invalid

	// ReportsTotal counts abuse reports filed.
	ReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairing_reports_total",
		Help: "Total abuse reports filed.",
	})

	// BansTotal counts automatic bans issued.
	BansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairing_bans_total",
		Help: "Total automatic bans issued.",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
