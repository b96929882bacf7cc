package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kpi-monitor/internal/api"
	"kpi-monitor/internal/config"
	"kpi-monitor/internal/db"
	"kpi-monitor/internal/kafka"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/monitor"
	"kpi-monitor/internal/providers"
	"kpi-monitor/internal/registry"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	// Connect to database and ensure schema
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if err := dbConn.Migrate(context.Background()); err != nil {
		logger.Errorf("Failed to run migrations: %v", err)
		log.Fatalf("Migrations failed: %v", err)
	}

	// Notification channels, each enabled only when configured
	channels := buildChannels(cfg, logger)

	// Build and start the monitoring loop
	svc := monitor.New(registry.New(), dbConn, logger, monitor.Options{
		TickInterval:       cfg.Monitor.TickInterval,
		AnomalyEnabled:     cfg.Monitor.AnomalyEnabled,
		AnomalySensitivity: cfg.Monitor.AnomalySensitivity,
		AnomalyWindow:      cfg.Monitor.AnomalyWindow,
		EscalationDelay:    cfg.Monitor.EscalationDelay,
		ReportHour:         cfg.Monitor.ReportHour,
		ReportMinute:       cfg.Monitor.ReportMinute,
		Channels:           channels,
	})

	hub := api.NewAlertHub(logger)
	svc.SetAlertHook(hub.Broadcast)
	if err := svc.RestoreOpenAlerts(context.Background()); err != nil {
		logger.Errorf("Failed to restore open alerts: %v", err)
	}
	svc.Start()

	// Kafka consumer for externally pushed measurements
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg, svc, logger)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
		go consumer.Start(context.Background())
	}

	// Start API server
	router := api.NewRouter(svc, hub, dbConn, logger, cfg)
	server := &http.Server{Addr: cfg.API.Port, Handler: router}
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown failed: %v", err)
	}
	if consumer != nil {
		consumer.Close()
	}
	svc.Stop()
	hub.Close()
	logger.Infof("Shutdown complete")
}

func buildChannels(cfg config.Config, logger *logging.Logger) []monitor.Channel {
	var channels []monitor.Channel

	if cfg.Email.SMTPServer != "" {
		email, err := providers.NewEmail(cfg)
		if err != nil {
			logger.Warnf("Email channel disabled: %v", err)
		} else {
			channels = append(channels, email)
		}
	}
	if cfg.Telegram.BotToken != "" {
		tg, err := providers.NewTelegram(cfg, logger)
		if err != nil {
			logger.Warnf("Telegram channel disabled: %v", err)
		} else {
			channels = append(channels, tg)
		}
	}
	if cfg.Webhook.URL != "" {
		wh, err := providers.NewWebhook(cfg, logger)
		if err != nil {
			logger.Warnf("Webhook channel disabled: %v", err)
		} else {
			channels = append(channels, wh)
		}
	}

	if len(channels) == 0 {
		logger.Warnf("No notification channels configured, alerts will only be logged and broadcast over WebSocket")
	}
	return channels
}
