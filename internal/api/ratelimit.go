package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// staleLimiterTTL is how long a per-IP limiter can be idle before cleanup.
	staleLimiterTTL = 10 * time.Minute

	cleanupInterval = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter limits requests per client IP.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	logger   *slog.Logger
	nowFunc  func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewClientRateLimiter starts a limiter allowing rps requests per second per
// client with the given burst. A non-positive rps disables limiting. Call
// Stop to release the cleanup goroutine.
func NewClientRateLimiter(rps float64, burst int, logger *slog.Logger) *ClientRateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	rl := &ClientRateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		logger:   logger.With("component", "api_ratelimit"),
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop shuts down the cleanup goroutine. Safe to call multiple times.
func (rl *ClientRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *ClientRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *ClientRateLimiter) evictStale() {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterTTL {
			delete(rl.limiters, key)
		}
	}
}

// LimiterCount returns the number of tracked clients.
func (rl *ClientRateLimiter) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Wrap applies the per-client limit before delegating to next.
func (rl *ClientRateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !rl.limiterFor(clientIP).Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			rl.logger.Warn("client rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", clientIP,
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *ClientRateLimiter) limiterFor(clientIP string) *rate.Limiter {
	now := rl.nowFunc()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[clientIP]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[clientIP] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}

// extractClientIP checks X-Forwarded-For (first IP), X-Real-IP, then RemoteAddr.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
