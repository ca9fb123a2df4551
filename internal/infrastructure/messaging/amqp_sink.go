// Package messaging forwards committed log entries to a message broker.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/infrastructure/config"
)

// channel is the part of *amqp.Channel the sink uses
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a connection and a channel with the exchange declared
type dialFunc func(url, exchange string) (channel, func() error, error)

// AMQPSink publishes log entries as JSON to a topic exchange. The routing
// key is the configured prefix followed by the entry type, e.g.
// "log.entry.element_edited". The connection is opened on first use and
// reopened after a failed publish.
type AMQPSink struct {
	url      string
	exchange string
	prefix   string
	timeout  time.Duration
	dial     dialFunc
	logger   *zap.Logger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

// NewAMQPSink creates a sink for the broker in cfg
func NewAMQPSink(cfg config.MessagingConfig, logger *zap.Logger) *AMQPSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPSink{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		prefix:   cfg.RoutingKey,
		timeout:  5 * time.Second,
		dial:     dialAMQP,
		logger:   logger,
	}
}

func dialAMQP(url, exchange string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return ch, conn.Close, nil
}

// RoutingKey returns the routing key of entry
func (s *AMQPSink) RoutingKey(entry logsystem.LogEntry) string {
	if s.prefix == "" {
		return string(entry.Type)
	}
	return s.prefix + "." + string(entry.Type)
}

// Send publishes entry to the exchange
func (s *AMQPSink) Send(ctx context.Context, entry logsystem.LogEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry %d: %w", entry.ID, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("log-%d", entry.ID),
		Timestamp:    entry.Timestamp,
		Type:         string(entry.Type),
		Headers: amqp.Table{
			"level":       entry.Level.String(),
			"target_type": string(entry.TargetType),
		},
		Body: body,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connect(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.ch.PublishWithContext(ctx, s.exchange, s.RoutingKey(entry), false, false, msg); err != nil {
		s.logger.Warn("Failed to forward log entry, reconnecting on next send",
			zap.Uint("log_id", entry.ID), zap.Error(err))
		s.reset()
		return fmt.Errorf("publish log entry %d: %w", entry.ID, err)
	}
	return nil
}

// Connect opens the broker connection and declares the exchange
func (s *AMQPSink) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connect()
}

func (s *AMQPSink) connect() error {
	if s.ch != nil {
		return nil
	}
	ch, closeConn, err := s.dial(s.url, s.exchange)
	if err != nil {
		return err
	}
	s.ch, s.closeConn = ch, closeConn
	s.logger.Info("Connected to message broker", zap.String("exchange", s.exchange))
	return nil
}

func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.closeConn != nil {
		_ = s.closeConn()
	}
	s.ch, s.closeConn = nil, nil
}

// Close closes the broker connection
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.ch != nil {
		errs = append(errs, s.ch.Close())
	}
	if s.closeConn != nil {
		errs = append(errs, s.closeConn())
	}
	s.ch, s.closeConn = nil, nil
	return errors.Join(errs...)
}
