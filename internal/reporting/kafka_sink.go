package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/provider"
)

// messageWriter is the part of kafka.Writer used by the sink
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink emits one message per recommendation, keyed by selection
type KafkaSink struct {
	writer messageWriter
	topic  string
	logger *logrus.Entry
	now    func() time.Time
}

var _ provider.ReportingSink = (*KafkaSink)(nil)

// NewKafkaSink creates a synchronous, hash-balanced writer for the configured topic
func NewKafkaSink(cfg config.KafkaConfig, logger *logrus.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 100 * time.Millisecond,
	}
	return newKafkaSink(writer, cfg.Topic, logger), nil
}

func newKafkaSink(w messageWriter, topic string, logger *logrus.Logger) *KafkaSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &KafkaSink{
		writer: w,
		topic:  topic,
		logger: logger.WithField("component", "kafka_sink"),
		now:    time.Now,
	}
}

// Publish writes the ranked list as a single batch
func (s *KafkaSink) Publish(ctx context.Context, cycleID string, ranked []models.Recommendation) error {
	if len(ranked) == 0 {
		return nil
	}

	at := s.now().UTC()
	msgs := make([]kafka.Message, 0, len(ranked))
	for _, r := range ranked {
		value, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal recommendation %s: %w", r.SelectionID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.SelectionID),
			Value: value,
			Time:  at,
			Headers: []kafka.Header{
				{Key: "cycle_id", Value: []byte(cycleID)},
				{Key: "status", Value: []byte(r.Status)},
			},
		})
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write to %s: %w", s.topic, err)
	}
	s.logger.WithFields(logrus.Fields{"cycle_id": cycleID, "messages": len(msgs), "topic": s.topic}).Debug("Published recommendations")
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
