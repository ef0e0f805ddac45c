package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mavryk-network/activity-history/internal/alert"
	"github.com/mavryk-network/activity-history/internal/api"
	"github.com/mavryk-network/activity-history/internal/chain"
	"github.com/mavryk-network/activity-history/internal/chain/ratelimit"
	"github.com/mavryk-network/activity-history/internal/chain/tzkt"
	"github.com/mavryk-network/activity-history/internal/circuitbreaker"
	"github.com/mavryk-network/activity-history/internal/config"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/metrics"
	"github.com/mavryk-network/activity-history/internal/pipeline/loader"
	"github.com/mavryk-network/activity-history/internal/tracing"
)

const alertTimeout = 15 * time.Second

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// buildRegistry creates one indexer client per configured chain. Each client
// gets its own limiter and breaker.
func buildRegistry(cfg *config.Config, alerter alert.Alerter, logger *slog.Logger) (*chain.Registry, []model.KnownChain) {
	registry := chain.NewRegistry()
	known := make([]model.KnownChain, 0, len(cfg.Chains))

	for _, c := range cfg.Chains {
		label := c.Label()
		rps, burst := cfg.Indexer.RPS, cfg.Indexer.Burst
		if c.RPS > 0 {
			rps = c.RPS
		}
		if c.Burst > 0 {
			burst = c.Burst
		}

		breaker := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.Indexer.BreakerFailureThreshold,
			SuccessThreshold: cfg.Indexer.BreakerSuccessThreshold,
			OpenTimeout:      cfg.Indexer.BreakerOpenTimeout,
			IsFailure:        tzkt.IsBreakerFailure,
			OnStateChange:    breakerStateObserver(label, alerter, logger),
		})

		client := tzkt.NewClient(c.IndexerURL, label, logger,
			tzkt.WithLimiter(ratelimit.NewLimiter(rps, burst, label)),
			tzkt.WithBreaker(breaker),
			tzkt.WithRateLimitBackoff(cfg.Indexer.RateLimitBackoff),
			tzkt.WithRequestTimeout(cfg.Indexer.RequestTimeout),
		)
		registry.Register(model.ChainID(c.ID), client)
		known = append(known, c.Known())

		logger.Info("indexer client registered",
			"chain", label,
			"chain_id", c.ID,
			"indexer_url", c.IndexerURL,
			"rps", rps,
			"burst", burst,
		)
	}
	return registry, known
}

// breakerStateObserver runs under the breaker lock, so alerts are sent from
// their own goroutine.
func breakerStateObserver(label string, alerter alert.Alerter, logger *slog.Logger) func(from, to circuitbreaker.State) {
	metrics.IndexerBreakerState.WithLabelValues(label).Set(float64(circuitbreaker.StateClosed))
	return func(from, to circuitbreaker.State) {
		metrics.IndexerBreakerState.WithLabelValues(label).Set(float64(to))
		logger.Warn("indexer circuit breaker state changed",
			"chain", label,
			"from", from.String(),
			"to", to.String(),
		)
		a, ok := alert.BreakerAlert(label, from, to)
		if !ok {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
			defer cancel()
			if err := alerter.Send(ctx, a); err != nil {
				logger.Warn("breaker alert failed", "chain", label, "error", err)
			}
		}()
	}
}

func newHTTPHandler(apiServer *api.Server) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiServer.Handler())
	return mux
}

func runHTTPServer(ctx context.Context, port int, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("http server shutdown error", "error", err)
		}
	}()

	logger.Info("http server started", "port", port)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)

	logger.Info("starting activity-history",
		"http_port", cfg.Server.HTTPPort,
		"chains", len(cfg.Chains),
		"page_size", cfg.History.PageSize,
		"max_page_size", cfg.History.MaxPageSize,
	)

	shutdownTracing, err := tracing.Init(context.Background(), "activity-history",
		cfg.Tracing.Endpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Endpoint != "" {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint, "sample_ratio", cfg.Tracing.SampleRatio)
	}

	alerter := alert.FromURLs(cfg.Alert.SlackWebhookURL, cfg.Alert.WebhookURL, cfg.Alert.Cooldown, logger)
	registry, known := buildRegistry(cfg, alerter, logger)
	pageLoader := loader.New(registry, logger)

	clientLimiter := api.NewClientRateLimiter(cfg.Server.ClientRPS, cfg.Server.ClientBurst, logger)
	defer clientLimiter.Stop()

	apiServer := api.NewServer(pageLoader, known, logger,
		api.WithClientRateLimiter(clientLimiter),
		api.WithPageSize(cfg.History.PageSize, cfg.History.MaxPageSize),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTPServer(gCtx, cfg.Server.HTTPPort, newHTTPHandler(apiServer), cfg.Server.ShutdownTimeout, logger)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down", "cause", context.Cause(gCtx))
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("activity-history exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("activity-history shut down gracefully")
}
