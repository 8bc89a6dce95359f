// Package kafka mirrors accepted alerts to a Kafka topic for downstream
// consumers outside the live fan-out.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazardwatch/alert-engine/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 5 * time.Second

// Mirror produces every accepted alert to the alerts topic. It sits beside
// the live broker as a second publisher: a broker outage is logged and the
// alert pipeline continues without it.
type Mirror struct {
	writer  *kafkago.Writer
	timeout time.Duration
	logger  *slog.Logger
}

// NewMirror creates a Kafka producer for the alerts topic.
func NewMirror(brokers []string, topic string, logger *slog.Logger) *Mirror {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Mirror{writer: w, timeout: defaultWriteTimeout, logger: logger}
}

// Publish mirrors one alert, returning 1 on success and 0 when the write
// failed. Failures never propagate: the store already holds the alert.
func (m *Mirror) Publish(alert domain.Alert) int {
	msg, err := serializeToMessage(alert)
	if err != nil {
		m.logger.Error("could not serialize alert for mirror", "alert_id", alert.ID, "error", err)
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		m.logger.Error("alert mirror write failed", "alert_id", alert.ID, "error", err)
		return 0
	}
	return 1
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}

// serializeToMessage marshals an alert into a Kafka message keyed by alert
// ID, with routing headers consumers can filter on without decoding.
func serializeToMessage(alert domain.Alert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "hazard_type", Value: []byte(alert.HazardType)},
			{Key: "severity", Value: []byte(alert.Severity)},
			{Key: "created_at", Value: []byte(alert.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
