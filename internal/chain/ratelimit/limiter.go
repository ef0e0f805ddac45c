package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mavryk-network/activity-history/internal/metrics"
	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket rate limiter for indexer requests.
type Limiter struct {
	limiter *rate.Limiter
	chain   string
}

// NewLimiter creates a rate limiter that allows rps requests per second
// with a burst capacity of burst tokens. A non-positive rps disables limiting.
func NewLimiter(rps float64, burst int, chain string) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, burst),
		chain:   chain,
	}
}

// Wait blocks until the limiter allows one event, or ctx is done.
// Uses Reserve() to guarantee exactly one token is consumed per call.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	r := l.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		metrics.IndexerRateLimitWaits.WithLabelValues(l.chain).Inc()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		}
	}
	return nil
}

// RecordRequest records an indexer request metric with status classification.
func RecordRequest(chain, endpoint string, err error) {
	metrics.IndexerRequestsTotal.WithLabelValues(chain, endpoint, ClassifyRequestError(err)).Inc()
}

type httpStatusError interface {
	HTTPStatus() int
}

// ClassifyRequestError classifies a request error into a metric label.
func ClassifyRequestError(err error) string {
	if err == nil {
		return "ok"
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		code := statusErr.HTTPStatus()
		switch {
		case code == http.StatusTooManyRequests:
			return "rate_limited"
		case code >= 500:
			return "server_error"
		default:
			return "client_error"
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "circuit breaker"):
		return "circuit_open"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "network is unreachable") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "broken pipe") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "client_error"
	}
}
