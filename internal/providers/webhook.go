package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kpi-monitor/internal/config"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
	"kpi-monitor/internal/utils"
)

// Webhook posts alerts as JSON to a chat webhook (Slack/Mattermost style).
type Webhook struct {
	url    string
	client *http.Client
	logger *logging.Logger
}

// NewWebhook builds the webhook channel from deployment configuration.
func NewWebhook(cfg config.Config, logger *logging.Logger) (*Webhook, error) {
	if cfg.Webhook.URL == "" {
		return nil, fmt.Errorf("missing webhook URL")
	}
	return &Webhook{
		url:    cfg.Webhook.URL,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, alert models.KPIAlert) error {
	payload, err := json.Marshal(map[string]any{
		"text": fmt.Sprintf("KPI alert (%s): %s", alert.Severity, alert.Message),
		"alert": map[string]any{
			"id":        alert.ID.String(),
			"kpi_id":    alert.KPIID,
			"kind":      alert.Kind,
			"severity":  alert.Severity,
			"value":     alert.Value,
			"threshold": alert.Threshold,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	return utils.Retry(w.logger, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to post webhook: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}
