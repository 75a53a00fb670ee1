// Package ratelimit provides Redis-backed throttling using the INCR + EXPIRE
// fixed-window scheme. Each client action (chat message, queue join,
// connection attempt) has its own rule with a per-session or per-IP key.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is one throttling policy: a key prefix, the maximum count allowed in
// the window, and the window length.
type Rule struct {
	Key    string
	Limit  int
	Window time.Duration
}

var (
	// RuleMessage allows 10 chat messages per 10 seconds per session.
	RuleMessage = Rule{Key: "rl:msg:", Limit: 10, Window: 10 * time.Second}

	// RuleJoin allows 10 queue joins per minute per session, which bounds
	// how fast a user can churn through partners.
	RuleJoin = Rule{Key: "rl:join:", Limit: 10, Window: 1 * time.Minute}

	// RuleReport allows 5 reports per minute per session.
	RuleReport = Rule{Key: "rl:report:", Limit: 5, Window: 1 * time.Minute}

	// RuleConnect allows 5 WebSocket connections per minute per IP.
	RuleConnect = Rule{Key: "rl:conn:", Limit: 5, Window: 1 * time.Minute}
)

// Limiter checks rules against Redis. A nil *Limiter allows everything, so
// callers can treat the limiter as optional without nil checks at each site.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow increments the identifier's counter for the rule and reports whether
// the action is within the limit. On the first increment in a window the key
// expiry is set to the window length.
//
// Redis errors fail open: an outage must never block legitimate traffic.
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) (bool, error) {
	if l == nil {
		return true, nil
	}
	key := rule.Key + identifier

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[ratelimit] redis INCR error key=%s: %v (failing open)", key, err)
		return true, err
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, rule.Window).Err(); err != nil {
			log.Printf("[ratelimit] redis EXPIRE error key=%s: %v (failing open)", key, err)
			// The key has no TTL and would throttle the identifier forever;
			// best effort removal.
			l.client.Del(ctx, key)
			return true, err
		}
	}

	return int(count) <= rule.Limit, nil
}

// RetryAfter returns the seconds until the identifier's window resets, for
// inclusion in rate_limited responses. Errors and missing keys report the
// full window.
func (l *Limiter) RetryAfter(ctx context.Context, identifier string, rule Rule) int {
	if l == nil {
		return 0
	}
	ttl, err := l.client.TTL(ctx, rule.Key+identifier).Result()
	if err != nil || ttl <= 0 {
		return int(rule.Window.Seconds())
	}
	return int(ttl.Seconds() + 0.5)
}
