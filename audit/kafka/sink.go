// Package kafka mirrors persisted audit records to a Kafka topic.
//
// The Sink is an AuditSink: the gateway's audit mirror calls it from a single
// goroutine after the identity store accepted the record, so a slow broker
// never delays a response.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	goGate "github.com/MrEthical07/goGate"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config selects the brokers and topic of the audit stream.
type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Sink publishes one JSON message per audit record, keyed by user id so a
// user's records stay ordered within a partition.
type Sink struct {
	writer  kafkaWriter
	timeout time.Duration
	logger  *zap.Logger
}

var _ goGate.AuditSink = (*Sink)(nil)

// NewSink validates cfg and creates a synchronous writer.
func NewSink(cfg Config, logger *zap.Logger) (*Sink, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		trimmed := strings.TrimSpace(b)
		if trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Sink{writer: w, timeout: cfg.WriteTimeout, logger: logger}, nil
}

// Emit publishes rec. Failures are logged; the record is already persisted.
func (s *Sink) Emit(ctx context.Context, rec goGate.AuditRecord) {
	if s == nil || s.writer == nil {
		return
	}
	value, err := json.Marshal(rec)
	if err != nil {
		s.logger.Warn("audit record encode failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(rec.IdentityID, 10)),
		Value: value,
		Time:  rec.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Warn("audit record publish failed",
			zap.Int64("user_id", rec.IdentityID),
			zap.String("path", rec.Path),
			zap.Error(err))
	}
}

func (s *Sink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
