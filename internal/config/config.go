package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Email struct {
		SMTPServer string
		SMTPPort   int
		Username   string
		Password   string
		Recipients []string
	}
	Telegram struct {
		BotToken      string
		ChatID        int64
		RatePerSecond int
	}
	Webhook struct {
		URL string
	}
	API struct {
		Port     string
		BasePath string
	}
	Monitor struct {
		TickInterval       time.Duration
		AnomalyEnabled     bool
		AnomalySensitivity float64 // 0..1, higher flags more anomalies
		AnomalyWindow      int
		EscalationDelay    time.Duration
		ReportHour         int
		ReportMinute       int
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	if p, err := strconv.Atoi(os.Getenv("EMAIL_SMTP_PORT")); err == nil {
		cfg.Email.SMTPPort = p
	}
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	for _, to := range strings.Split(os.Getenv("EMAIL_RECIPIENTS"), ",") {
		if to = strings.TrimSpace(to); to != "" {
			cfg.Email.Recipients = append(cfg.Email.Recipients, to)
		}
	}

	// Telegram settings
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_PER_SECOND")); err == nil {
		cfg.Telegram.RatePerSecond = r
	}

	cfg.Webhook.URL = os.Getenv("WEBHOOK_URL")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Monitor settings
	if sec, err := strconv.Atoi(os.Getenv("MONITOR_TICK_SECONDS")); err == nil {
		cfg.Monitor.TickInterval = time.Duration(sec) * time.Second
	}
	cfg.Monitor.AnomalyEnabled = os.Getenv("ANOMALY_ENABLED") != "false"
	if s, err := strconv.ParseFloat(os.Getenv("ANOMALY_SENSITIVITY"), 64); err == nil {
		cfg.Monitor.AnomalySensitivity = s
	} else {
		cfg.Monitor.AnomalySensitivity = 0.5
	}
	if w, err := strconv.Atoi(os.Getenv("ANOMALY_WINDOW")); err == nil {
		cfg.Monitor.AnomalyWindow = w
	}
	if m, err := strconv.Atoi(os.Getenv("ESCALATION_DELAY_MINUTES")); err == nil {
		cfg.Monitor.EscalationDelay = time.Duration(m) * time.Minute
	}
	if h, err := strconv.Atoi(os.Getenv("REPORT_HOUR")); err == nil {
		cfg.Monitor.ReportHour = h
	} else {
		cfg.Monitor.ReportHour = 6
	}
	if m, err := strconv.Atoi(os.Getenv("REPORT_MINUTE")); err == nil {
		cfg.Monitor.ReportMinute = m
	} else {
		cfg.Monitor.ReportMinute = 15
	}

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "kpi_measurements"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "kpi-monitor"
	}
	if cfg.Telegram.RatePerSecond == 0 {
		cfg.Telegram.RatePerSecond = 5
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	// The collector gates on wall-clock minutes; ticking faster than one
	// minute would re-collect scheduled KPIs within the same minute.
	if cfg.Monitor.TickInterval < time.Minute {
		cfg.Monitor.TickInterval = time.Minute
	}
	if cfg.Monitor.AnomalyWindow == 0 {
		cfg.Monitor.AnomalyWindow = 20
	}
	if cfg.Monitor.EscalationDelay == 0 {
		cfg.Monitor.EscalationDelay = 30 * time.Minute
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Monitor.AnomalySensitivity < 0 || cfg.Monitor.AnomalySensitivity > 1 {
		return Config{}, fmt.Errorf("ANOMALY_SENSITIVITY must be in [0,1], got %v", cfg.Monitor.AnomalySensitivity)
	}

	return cfg, nil
}
