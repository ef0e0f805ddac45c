package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavryk-network/activity-history/internal/alert"
	"github.com/mavryk-network/activity-history/internal/api"
	"github.com/mavryk-network/activity-history/internal/circuitbreaker"
	"github.com/mavryk-network/activity-history/internal/config"
	"github.com/mavryk-network/activity-history/internal/domain/model"
	"github.com/mavryk-network/activity-history/internal/pipeline/loader"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
}

func TestBuildRegistry_RegistersEveryChain(t *testing.T) {
	cfg := &config.Config{
		Indexer: config.IndexerConfig{
			RPS:              10,
			Burst:            10,
			RateLimitBackoff: time.Second,
			RequestTimeout:   5 * time.Second,
		},
		Chains: []config.ChainConfig{
			{ID: string(model.ChainTezosMainnet), Name: "mainnet", IndexerURL: "https://api.tzkt.io/v1", LiquidityContract: "KT1liq"},
			{ID: "NetXcustom", IndexerURL: "https://indexer.example/v1", RPS: 2, Burst: 1},
		},
	}

	registry, known := buildRegistry(cfg, &alert.NoopAlerter{}, slog.Default())

	require.Len(t, known, 2)
	assert.Equal(t, "KT1liq", known[0].LiquidityContract)
	assert.Equal(t, model.ChainID("NetXcustom"), known[1].ID)

	assert.True(t, registry.Supports(model.ChainTezosMainnet))
	assert.True(t, registry.Supports("NetXcustom"))
	assert.False(t, registry.Supports(model.ChainTezosGhostnet))

	src, err := registry.Source(model.ChainTezosMainnet)
	require.NoError(t, err)
	assert.NotNil(t, src)
}

func TestNewHTTPHandler_ServesMetricsAndAPI(t *testing.T) {
	cfg := &config.Config{Chains: []config.ChainConfig{
		{ID: string(model.ChainTezosMainnet), Name: "mainnet", IndexerURL: "https://api.tzkt.io/v1"},
	}}
	registry, known := buildRegistry(cfg, &alert.NoopAlerter{}, slog.Default())
	handler := newHTTPHandler(api.NewServer(loader.New(registry, slog.Default()), known, slog.Default()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "history_indexer_circuit_breaker_state")
}

type recordingAlerter struct {
	sent chan alert.Alert
}

func (r *recordingAlerter) Send(_ context.Context, a alert.Alert) error {
	r.sent <- a
	return nil
}

func TestBreakerStateObserver_SendsAlertOnOpen(t *testing.T) {
	rec := &recordingAlerter{sent: make(chan alert.Alert, 1)}
	observe := breakerStateObserver("mainnet", rec, slog.Default())

	observe(circuitbreaker.StateClosed, circuitbreaker.StateOpen)

	select {
	case a := <-rec.sent:
		assert.Equal(t, alert.AlertTypeIndexerUnavailable, a.Type)
		assert.Equal(t, "mainnet", a.Chain)
	case <-time.After(time.Second):
		t.Fatal("expected breaker alert")
	}

	observe(circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen)
	select {
	case a := <-rec.sent:
		t.Fatalf("unexpected alert %s", a.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
