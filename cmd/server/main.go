package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strangerconnect/pairing/internal/hub"
	"github.com/strangerconnect/pairing/internal/messaging"
	"github.com/strangerconnect/pairing/internal/metrics"
	"github.com/strangerconnect/pairing/internal/protocol"
	"github.com/strangerconnect/pairing/internal/ratelimit"
	"github.com/strangerconnect/pairing/internal/report"
	"github.com/strangerconnect/pairing/internal/ws"
)

func main() {
	config := ws.DefaultConfig()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.MaxConnections = n
		}
	}
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.ReadTimeout = d
		}
	}
	if v := os.Getenv("WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.WriteTimeout = d
		}
	}

	metricsAddr := ":9090"
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		metricsAddr = v
	}

	// --- Redis (optional): rate limiting ---
	var limiter *ratelimit.Limiter
	var rdb *redis.Client
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("failed to connect to Redis at %s: %v", redisAddr, err)
		}
		cancel()
		limiter = ratelimit.NewLimiter(rdb)
	}

	// --- NATS (optional): moderation event feed ---
	var natsClient *messaging.Client
	natsURL := os.Getenv("NATS_URL")
	if natsURL != "" {
		natsConfig := messaging.DefaultConfig()
		natsConfig.URL = natsURL
		var err error
		natsClient, err = messaging.Connect(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
	}

	// --- PostgreSQL (optional): abuse report archive ---
	var reportStore *report.Store
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL != "" {
		db, err := report.Open(databaseURL)
		if err != nil {
			log.Fatalf("failed to open report archive: %v", err)
		}
		defer db.Close()
		reportStore = report.NewStore(db)
	}

	log.Printf("pairing server starting")
	log.Printf("  listen_addr:     %s", config.ListenAddr)
	log.Printf("  metrics_addr:    %s", metricsAddr)
	log.Printf("  worker_pool:     %d", config.WorkerPoolSize)
	log.Printf("  max_connections: %d", config.MaxConnections)
	log.Printf("  read_timeout:    %s", config.ReadTimeout)
	log.Printf("  write_timeout:   %s", config.WriteTimeout)
	log.Printf("  redis_addr:      %s", orNone(redisAddr))
	log.Printf("  nats_url:        %s", orNone(natsURL))
	log.Printf("  report_archive:  %v", reportStore != nil)

	// Assemble the moderation event sinks.
	var auditors hub.MultiAuditor
	if natsClient != nil {
		auditors = append(auditors, messaging.NewFeed(natsClient))
	}
	if reportStore != nil {
		auditors = append(auditors, report.NewArchiver(reportStore))
	}

	dispatcher := ws.NewDispatcher()
	server := ws.NewServer(config, dispatcher.Dispatch)

	var opts []hub.Option
	if len(auditors) > 0 {
		opts = append(opts, hub.WithAuditor(auditors))
	}
	h := hub.New(server, opts...)

	server.SetOnConnect(h.HandleConnect)
	server.SetOnDisconnect(h.HandleDisconnect)

	// Per-IP connection throttling at the upgrade gate.
	if limiter != nil {
		server.SetGate(func(r *http.Request) (int, error) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if ok, _ := limiter.Allow(ctx, ip, ratelimit.RuleConnect); !ok {
				return http.StatusTooManyRequests, errors.New("too many connection attempts")
			}
			return 0, nil
		})

		limitRules := map[string]ratelimit.Rule{
			protocol.TypeMessage:   ratelimit.RuleMessage,
			protocol.TypeJoinQueue: ratelimit.RuleJoin,
			protocol.TypeReport:    ratelimit.RuleReport,
		}
		dispatcher.SetLimit(func(sessionID, msgType string) (bool, int) {
			rule, limited := limitRules[msgType]
			if !limited {
				return true, 0
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if ok, _ := limiter.Allow(ctx, sessionID, rule); !ok {
				return false, limiter.RetryAfter(ctx, sessionID, rule)
			}
			return true, 0
		})
	}

	// -----------------------------------------------------------------------
	// Message routing: protocol type -> hub operation
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeJoinQueue, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.JoinQueueMsg); ok {
			h.HandleJoinQueue(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeEndChat, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.EndChatMsg); ok {
			h.HandleEndChat(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeMessage, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.ChatMsg); ok {
			h.HandleMessage(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeTyping, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.TypingMsg); ok {
			h.HandleTyping(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeStopTyping, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.StopTypingMsg); ok {
			h.HandleStopTyping(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeSignal, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.SignalMsg); ok {
			h.HandleSignal(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeFileShare, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.FileShareMsg); ok {
			h.HandleFileShare(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeRaiseHand, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.RaiseHandMsg); ok {
			h.HandleRaiseHand(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeLowerHand, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.LowerHandMsg); ok {
			h.HandleLowerHand(conn.ID, &m)
		}
	})
	dispatcher.Register(protocol.TypeReport, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.ReportMsg); ok {
			h.HandleReport(conn.ID, &m)
		}
	})

	// Prometheus endpoint on its own listener.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if natsClient != nil {
			natsClient.Close()
		}
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func orNone(v string) string {
	if v == "" {
		return "(disabled)"
	}
	return v
}
