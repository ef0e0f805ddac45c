package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mavryk-network/activity-history/internal/circuitbreaker"
	"github.com/mavryk-network/activity-history/internal/metrics"
)

// AlertType categorizes the kind of alert.
type AlertType string

const (
	AlertTypeIndexerUnavailable AlertType = "INDEXER_UNAVAILABLE"
	AlertTypeIndexerRecovered   AlertType = "INDEXER_RECOVERED"
)

// Alert represents a single alert event.
type Alert struct {
	Type    AlertType
	Chain   string
	Title   string
	Message string
	Fields  map[string]string
}

// Alerter is the interface for sending alerts.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// BreakerAlert maps an indexer breaker transition to an alert. Only opening
// and closing are reported; half-open probes are not.
func BreakerAlert(chain string, from, to circuitbreaker.State) (Alert, bool) {
	fields := map[string]string{"from": from.String(), "to": to.String()}
	switch to {
	case circuitbreaker.StateOpen:
		return Alert{
			Type:    AlertTypeIndexerUnavailable,
			Chain:   chain,
			Title:   "History indexer unavailable",
			Message: "Circuit breaker opened; history requests fail fast until the indexer recovers",
			Fields:  fields,
		}, true
	case circuitbreaker.StateClosed:
		if from == circuitbreaker.StateClosed {
			return Alert{}, false
		}
		return Alert{
			Type:    AlertTypeIndexerRecovered,
			Chain:   chain,
			Title:   "History indexer recovered",
			Message: "Circuit breaker closed",
			Fields:  fields,
		}, true
	default:
		return Alert{}, false
	}
}

// MultiAlerter fans out alerts to multiple channels.
type MultiAlerter struct {
	alerters []Alerter
	cooldown time.Duration
	logger   *slog.Logger
	nowFn    func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewMultiAlerter creates a new multi-channel alerter with cooldown.
func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, alerters ...Alerter) *MultiAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiAlerter{
		alerters: alerters,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		nowFn:    time.Now,
		lastSent: make(map[string]time.Time),
	}
}

// FromURLs builds an alerter for the configured channels. Empty URLs are
// skipped; with no channel it returns a NoopAlerter.
func FromURLs(slackWebhookURL, webhookURL string, cooldown time.Duration, logger *slog.Logger) Alerter {
	var alerters []Alerter
	if slackWebhookURL != "" {
		alerters = append(alerters, NewSlackAlerter(slackWebhookURL))
	}
	if webhookURL != "" {
		alerters = append(alerters, NewWebhookAlerter(webhookURL))
	}
	if len(alerters) == 0 {
		return &NoopAlerter{}
	}
	return NewMultiAlerter(cooldown, logger, alerters...)
}

func cooldownKey(a Alert) string {
	return fmt.Sprintf("%s:%s", a.Type, a.Chain)
}

// Send dispatches alert to all channels, respecting cooldown.
func (m *MultiAlerter) Send(ctx context.Context, alert Alert) error {
	key := cooldownKey(alert)

	m.mu.Lock()
	now := m.nowFn()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("alert suppressed by cooldown", "key", key)
		for _, a := range m.alerters {
			metrics.AlertsCooldownSkipped.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
		}
		return nil
	}
	m.lastSent[key] = now
	m.mu.Unlock()

	var firstErr error
	for _, a := range m.alerters {
		if err := a.Send(ctx, alert); err != nil {
			m.logger.Warn("alert send failed",
				"channel", alerterName(a),
				"type", alert.Type,
				"chain", alert.Chain,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		} else {
			metrics.AlertsSentTotal.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
		}
	}
	return firstErr
}

func alerterName(a Alerter) string {
	switch a.(type) {
	case *SlackAlerter:
		return "slack"
	case *WebhookAlerter:
		return "webhook"
	default:
		return "unknown"
	}
}

// SlackAlerter sends alerts to a Slack webhook.
type SlackAlerter struct {
	webhookURL string
	client     *http.Client
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the alert as a Slack message. Fields are listed in key order.
func (s *SlackAlerter) Send(ctx context.Context, alert Alert) error {
	emoji := ":rotating_light:"
	if alert.Type == AlertTypeIndexerRecovered {
		emoji = ":white_check_mark:"
	}

	var text bytes.Buffer
	fmt.Fprintf(&text, "%s *[%s]* %s: %s\n%s", emoji, alert.Type, alert.Chain, alert.Title, alert.Message)
	if len(alert.Fields) > 0 {
		keys := make([]string, 0, len(alert.Fields))
		for k := range alert.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		text.WriteString("\n")
		for _, k := range keys {
			fmt.Fprintf(&text, "- *%s*: %s\n", k, alert.Fields[k])
		}
	}

	return postJSON(ctx, s.client, s.webhookURL, map[string]string{"text": text.String()}, "slack")
}

// WebhookAlerter sends alerts to a generic HTTP webhook.
type WebhookAlerter struct {
	url    string
	client *http.Client
	nowFn  func() time.Time
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		nowFn:  time.Now,
	}
}

// Send sends an alert to the webhook endpoint.
func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	payload := map[string]any{
		"type":    string(alert.Type),
		"chain":   alert.Chain,
		"title":   alert.Title,
		"message": alert.Message,
		"fields":  alert.Fields,
		"time":    w.nowFn().UTC().Format(time.RFC3339),
	}
	return postJSON(ctx, w.client, w.url, payload, "webhook")
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, channel string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s alert: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", channel, resp.StatusCode)
	}
	return nil
}

// NoopAlerter does nothing. Used when no alert channels are configured.
type NoopAlerter struct{}

func (n *NoopAlerter) Send(_ context.Context, _ Alert) error { return nil }
