package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// History engine counters and histograms, partitioned by chain.

var (
	// Indexer client
	IndexerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "indexer",
		Name:      "requests_total",
		Help:      "Total indexer HTTP requests by endpoint and outcome",
	}, []string{"chain", "endpoint", "status"})

	IndexerRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "history",
		Subsystem: "indexer",
		Name:      "request_duration_seconds",
		Help:      "Indexer HTTP request duration",
		Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"chain", "endpoint"})

	IndexerRateLimitRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "indexer",
		Name:      "rate_limit_retries_total",
		Help:      "Total requests retried after a 429 response",
	}, []string{"chain"})

	IndexerRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "indexer",
		Name:      "rate_limit_waits_total",
		Help:      "Total client-side limiter waits before a request",
	}, []string{"chain"})

	IndexerBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "history",
		Subsystem: "indexer",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"chain"})

	// Token standard cache
	StandardCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "cache",
		Name:      "token_standard_hits_total",
		Help:      "Total token standard cache hits",
	}, []string{"chain"})

	StandardCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "cache",
		Name:      "token_standard_misses_total",
		Help:      "Total token standard cache misses",
	}, []string{"chain"})

	// Pipeline
	PageLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "pipeline",
		Name:      "page_loads_total",
		Help:      "Total history page loads by scope and outcome",
	}, []string{"chain", "scope", "outcome"})

	PageLoadLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "history",
		Subsystem: "pipeline",
		Name:      "page_load_duration_seconds",
		Help:      "History page load duration including per-hash group fetches",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"chain", "scope"})

	PageGroupsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "pipeline",
		Name:      "groups_fetched_total",
		Help:      "Total operation groups fetched by hash",
	}, []string{"chain"})

	ClassifierDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "classifier",
		Name:      "dropped_total",
		Help:      "Total operations dropped as noise during classification",
	}, []string{"reason"})

	StaleResultsDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "pagination",
		Name:      "stale_results_discarded_total",
		Help:      "Total page results discarded because the feed identity changed",
	}, []string{"chain"})

	// Alerts
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "alert",
		Name:      "sent_total",
		Help:      "Total alerts delivered by channel and type",
	}, []string{"channel", "type"})

	AlertsCooldownSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "history",
		Subsystem: "alert",
		Name:      "cooldown_skipped_total",
		Help:      "Total alerts suppressed by the per-chain cooldown",
	}, []string{"channel", "type"})
)
