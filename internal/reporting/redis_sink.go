// Package reporting publishes ranked recommendations to Redis and Kafka.
package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-edge/internal/config"
	"github.com/yourusername/clever-edge/internal/models"
	"github.com/yourusername/clever-edge/internal/provider"
)

const (
	defaultKeyPrefix = "clever-edge:"
	historyLength    = 100
)

// ErrNoReport is returned when no cycle has been published yet
var ErrNoReport = errors.New("no report published")

// CycleReport is the payload stored per cycle
type CycleReport struct {
	CycleID         string                  `json:"cycle_id"`
	PublishedAt     time.Time               `json:"published_at"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

// RedisSink stores the latest cycles' recommendations in Redis
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Entry
	now    func() time.Time
}

var _ provider.ReportingSink = (*RedisSink)(nil)

// NewRedisSink creates a sink from the redis section of the configuration
func NewRedisSink(cfg config.RedisConfig, logger *logrus.Logger) *RedisSink {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisSink(client, cfg, logger)
}

func newRedisSink(client *redis.Client, cfg config.RedisConfig, logger *logrus.Logger) *RedisSink {
	if logger == nil {
		logger = logrus.New()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisSink{
		client: client,
		ttl:    time.Duration(cfg.TTLMinutes) * time.Minute,
		prefix: prefix,
		logger: logger.WithField("component", "redis_sink"),
		now:    time.Now,
	}
}

func (s *RedisSink) cycleKey(cycleID string) string { return s.prefix + "cycle:" + cycleID }
func (s *RedisSink) latestKey() string              { return s.prefix + "latest" }
func (s *RedisSink) historyKey() string             { return s.prefix + "history" }

// Publish stores the ranked list under its cycle and marks it as latest
func (s *RedisSink) Publish(ctx context.Context, cycleID string, ranked []models.Recommendation) error {
	data, err := json.Marshal(CycleReport{CycleID: cycleID, PublishedAt: s.now().UTC(), Recommendations: ranked})
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.cycleKey(cycleID), data, s.ttl)
	pipe.Set(ctx, s.latestKey(), cycleID, s.ttl)
	pipe.LPush(ctx, s.historyKey(), cycleID)
	pipe.LTrim(ctx, s.historyKey(), 0, historyLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"cycle_id":        cycleID,
		"recommendations": len(ranked),
	}).Debug("Published cycle report")
	return nil
}

// Get returns the report of one cycle
func (s *RedisSink) Get(ctx context.Context, cycleID string) (CycleReport, error) {
	data, err := s.client.Get(ctx, s.cycleKey(cycleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CycleReport{}, ErrNoReport
	} else if err != nil {
		return CycleReport{}, fmt.Errorf("failed to get from Redis: %w", err)
	}

	var report CycleReport
	if err := json.Unmarshal(data, &report); err != nil {
		return CycleReport{}, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return report, nil
}

// Latest returns the most recently published report
func (s *RedisSink) Latest(ctx context.Context) (CycleReport, error) {
	cycleID, err := s.client.Get(ctx, s.latestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return CycleReport{}, ErrNoReport
	} else if err != nil {
		return CycleReport{}, fmt.Errorf("failed to get latest cycle: %w", err)
	}
	return s.Get(ctx, cycleID)
}

// History returns published cycle IDs, newest first
func (s *RedisSink) History(ctx context.Context) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.historyKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return ids, nil
}

// Ping verifies connectivity
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.client.Close()
}
