// Package events publishes payment lifecycle events to NATS so other
// services (notifications, history, risk) can react without coupling
// to the resolution pipeline.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"paylink-backend/internal/config"
)

// Event subjects, relative to the configured prefix.
const (
	SubjectPaymentResolved = "payment.resolved"
	SubjectPaymentRejected = "payment.rejected"
)

// Publisher publishes JSON events to NATS. A nil Publisher is valid
// and drops everything, so event publishing stays optional.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *logrus.Logger
}

// NewPublisher connects to NATS using the application configuration.
// It returns nil without error when NATS is not configured.
func NewPublisher(cfg config.NATSConfig, logger *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS not configured, event publishing disabled")
		return nil, nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5
	}
	reconnectWait := cfg.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 1
	}
	opts := []nats.Option{
		nats.Timeout(time.Duration(timeout) * time.Second),
		nats.ReconnectWait(time.Duration(reconnectWait) * time.Second),
		nats.MaxReconnects(cfg.MaxReconnects),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "paylink"
	}
	logger.WithFields(logrus.Fields{
		"url":    cfg.URL,
		"prefix": prefix,
	}).Info("Connected to NATS")

	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Publish sends payload as JSON on the prefixed subject. Failures are
// logged, not propagated; a resolved payment must not fail because the
// event bus is down.
func (p *Publisher) Publish(subject string, payload interface{}) {
	if p == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(p.prefix+"."+subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to publish event")
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
