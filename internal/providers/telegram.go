package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"kpi-monitor/internal/config"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/models"
	"kpi-monitor/internal/utils"
)

// Telegram delivers alerts to a chat via the go-telegram/bot library, rate
// limited so alert storms do not trip the Bot API.
type Telegram struct {
	token   string
	chatID  int64
	limiter *rate.Limiter
	logger  *logging.Logger
}

// NewTelegram builds the telegram channel from deployment configuration.
func NewTelegram(cfg config.Config, logger *logging.Logger) (*Telegram, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("missing bot_token in Telegram configuration")
	}
	if cfg.Telegram.ChatID == 0 {
		return nil, fmt.Errorf("missing chat_id in Telegram configuration")
	}
	return &Telegram{
		token:   cfg.Telegram.BotToken,
		chatID:  cfg.Telegram.ChatID,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.Telegram.RatePerSecond)), cfg.Telegram.RatePerSecond),
		logger:  logger,
	}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, alert models.KPIAlert) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf(
		"*KPI alert (%s)*\n%s\n\n"+
			"*KPI:* %s\n"+
			"*Value:* %.2f\n"+
			"*Threshold:* %.2f\n"+
			"*Kind:* %s",
		alert.Severity,
		alert.Message,
		alert.KPIID,
		alert.Value,
		alert.Threshold,
		alert.Kind,
	)

	return utils.Retry(t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", t.chatID, err)
		}
		return nil
	})
}
