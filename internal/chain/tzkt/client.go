package tzkt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mavryk-network/activity-history/internal/cache"
	"github.com/mavryk-network/activity-history/internal/chain/ratelimit"
	"github.com/mavryk-network/activity-history/internal/circuitbreaker"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
	"github.com/mavryk-network/activity-history/internal/pipeline/retry"
	"github.com/mavryk-network/activity-history/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultRequestTimeout   = 30 * time.Second
	defaultRateLimitBackoff = time.Second
	standardCacheCapacity   = 512
	standardCacheTTL        = 24 * time.Hour
)

// StatusError is returned for non-2xx indexer responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// Client talks to one indexer REST API base URL.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	chain            string
	limiter          *ratelimit.Limiter
	breaker          *circuitbreaker.Breaker
	standards        *cache.LRU[string, model.TokenStandard]
	rateLimitBackoff time.Duration
	sleepFn          func(ctx context.Context, d time.Duration) error
	logger           *slog.Logger
}

type Option func(*Client)

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithRateLimitBackoff sets the fixed delay before the single retry of a 429 response.
func WithRateLimitBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.rateLimitBackoff = d
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL, chain string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient:       &http.Client{Timeout: defaultRequestTimeout},
		baseURL:          strings.TrimRight(baseURL, "/"),
		chain:            chain,
		standards:        cache.NewLRU[string, model.TokenStandard](standardCacheCapacity, standardCacheTTL),
		rateLimitBackoff: defaultRateLimitBackoff,
		logger:           logger.With("component", "tzkt", "chain", chain),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// IsBreakerFailure reports whether err indicates an unhealthy indexer.
// Client errors (4xx, including 429) do not count.
func IsBreakerFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}

// get issues a GET request and decodes the JSON body into out. A 429 response
// is retried exactly once after the fixed back-off.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) (err error) {
	ctx, span := tracing.StartSpan(ctx, "tzkt", "tzkt.get",
		attribute.String("chain", c.chain),
		attribute.String("endpoint", endpoint),
	)
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	body, err := c.getWithRateLimitRetry(ctx, endpoint, path, params)
	metrics.IndexerRequestLatency.WithLabelValues(c.chain, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) getWithRateLimitRetry(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	body, err := c.getOnce(ctx, endpoint, path, params)
	if !retry.IsRateLimited(err) {
		return body, err
	}

	metrics.IndexerRateLimitRetries.WithLabelValues(c.chain).Inc()
	c.logger.Warn("indexer rate limited; retrying once",
		"endpoint", endpoint,
		"backoff", c.rateLimitBackoff,
	)
	if sleepErr := c.sleep(ctx, c.rateLimitBackoff); sleepErr != nil {
		return nil, sleepErr
	}
	return c.getOnce(ctx, endpoint, path, params)
}

func (c *Client) getOnce(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	var body []byte
	err := c.breaker.Do(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = c.do(ctx, path, params)
		return err
	})
	ratelimit.RecordRequest(c.chain, endpoint, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, fmt.Errorf("http request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if c.sleepFn != nil {
		return c.sleepFn(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
