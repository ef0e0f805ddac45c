package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mavryk-network/activity-history/internal/domain/model"
)

type Config struct {
	Server  ServerConfig
	Indexer IndexerConfig
	History HistoryConfig
	Tracing TracingConfig
	Log     LogConfig
	Alert   AlertConfig
	Chains  []ChainConfig
}

type ServerConfig struct {
	HTTPPort        int
	ShutdownTimeout time.Duration
	// ClientRPS and ClientBurst bound requests per client IP.
	ClientRPS   float64
	ClientBurst int
}

// IndexerConfig holds per-chain client defaults. Chain entries may override
// the rate limit.
type IndexerConfig struct {
	RPS                     float64
	Burst                   int
	RateLimitBackoff        time.Duration
	RequestTimeout          time.Duration
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerOpenTimeout      time.Duration
}

type HistoryConfig struct {
	PageSize    int
	MaxPageSize int
}

type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

type LogConfig struct {
	Level string
}

// AlertConfig lists the channels notified about indexer breaker changes.
type AlertConfig struct {
	SlackWebhookURL string
	WebhookURL      string
	Cooldown        time.Duration
}

// ChainConfig describes one indexer deployment.
type ChainConfig struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	IndexerURL        string  `yaml:"indexer_url"`
	LiquidityContract string  `yaml:"liquidity_contract"`
	RPS               float64 `yaml:"rps"`
	Burst             int     `yaml:"burst"`
}

type chainsFile struct {
	Chains []ChainConfig `yaml:"chains"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort:        getEnvInt("HTTP_PORT", 8080),
			ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 15)) * time.Second,
			ClientRPS:       getEnvFloat("API_CLIENT_RPS", 5),
			ClientBurst:     getEnvInt("API_CLIENT_BURST", 10),
		},
		Indexer: IndexerConfig{
			RPS:                     getEnvFloat("INDEXER_RPS", 10),
			Burst:                   getEnvInt("INDEXER_BURST", 10),
			RateLimitBackoff:        time.Duration(getEnvInt("RATE_LIMIT_BACKOFF_MS", 1000)) * time.Millisecond,
			RequestTimeout:          time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
			BreakerFailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			BreakerSuccessThreshold: getEnvInt("BREAKER_SUCCESS_THRESHOLD", 2),
			BreakerOpenTimeout:      time.Duration(getEnvInt("BREAKER_OPEN_TIMEOUT_SEC", 30)) * time.Second,
		},
		History: HistoryConfig{
			PageSize:    getEnvInt("PAGE_SIZE", 20),
			MaxPageSize: getEnvInt("MAX_PAGE_SIZE", 100),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Alert: AlertConfig{
			SlackWebhookURL: getEnv("ALERT_SLACK_WEBHOOK_URL", ""),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:        time.Duration(getEnvInt("ALERT_COOLDOWN_SEC", 300)) * time.Second,
		},
	}

	if path := getEnv("CHAINS_FILE", ""); path != "" {
		chains, err := LoadChainsFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Chains = chains
	} else {
		cfg.Chains = defaultChains()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadChainsFile reads the chains list from a YAML file.
func LoadChainsFile(path string) ([]ChainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}
	var file chainsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse chains file %s: %w", path, err)
	}
	return file.Chains, nil
}

func defaultChains() []ChainConfig {
	chains := make([]ChainConfig, 0, len(model.DefaultChains))
	for _, c := range model.DefaultChains {
		chains = append(chains, ChainConfig{
			ID:                c.ID.String(),
			Name:              c.Name,
			IndexerURL:        c.IndexerURL,
			LiquidityContract: c.LiquidityContract,
		})
	}
	return chains
}

// Known converts the chain entry to the model descriptor.
func (c ChainConfig) Known() model.KnownChain {
	return model.KnownChain{
		ID:                model.ChainID(c.ID),
		Name:              c.Name,
		IndexerURL:        c.IndexerURL,
		LiquidityContract: c.LiquidityContract,
	}
}

// Label is the metrics and log label of the chain.
func (c ChainConfig) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Chain returns the entry for id.
func (c *Config) Chain(id model.ChainID) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ID == id.String() {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

func (c *Config) validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.History.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	if c.History.MaxPageSize < c.History.PageSize {
		return fmt.Errorf("MAX_PAGE_SIZE must be at least PAGE_SIZE")
	}
	if c.Indexer.RateLimitBackoff < 0 {
		return fmt.Errorf("RATE_LIMIT_BACKOFF_MS must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level)
	}

	if len(c.Chains) == 0 {
		return fmt.Errorf("at least one chain is required")
	}
	seen := make(map[string]struct{}, len(c.Chains))
	for i, ch := range c.Chains {
		if ch.ID == "" {
			return fmt.Errorf("chains[%d]: id is required", i)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("chains[%d]: duplicate chain id %s", i, ch.ID)
		}
		seen[ch.ID] = struct{}{}
		u, err := url.Parse(ch.IndexerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("chains[%d]: invalid indexer_url %q", i, ch.IndexerURL)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
