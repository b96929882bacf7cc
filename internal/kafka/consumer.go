// Package kafka ingests KPI measurement events produced by the booking
// platform and records them through the monitoring service.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	kafkago "github.com/segmentio/kafka-go"

	"kpi-monitor/internal/config"
	"kpi-monitor/internal/logging"
	"kpi-monitor/internal/monitor"
)

// measurementEvent is the wire format on the kpi_measurements topic.
type measurementEvent struct {
	KPIID      string            `json:"kpi_id"`
	Value      float64           `json:"value"`
	Dimensions []string          `json:"dimensions,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type Consumer struct {
	reader *kafkago.Reader
	svc    *monitor.Service
	logger *logging.Logger
}

func NewConsumer(cfg config.Config, svc *monitor.Service, logger *logging.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{cfg.Kafka.Broker},
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	return &Consumer{reader: reader, svc: svc, logger: logger}
}

// Start consumes measurement events until the context is cancelled or the
// reader is closed. Malformed events are logged and skipped.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Infof("Kafka consumer stopped")
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var event measurementEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Errorf("Unmarshal message failed: %v", err)
			continue
		}
		if event.KPIID == "" {
			c.logger.Errorf("Invalid message: missing kpi_id")
			continue
		}

		if err := c.svc.RecordValue(ctx, event.KPIID, event.Value, event.Dimensions, event.Metadata); err != nil {
			c.logger.Errorf("Record from Kafka failed for KPI %s: %v", event.KPIID, err)
			continue
		}
		c.logger.Debugf("Recorded measurement for KPI %s: %.2f", event.KPIID, event.Value)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
