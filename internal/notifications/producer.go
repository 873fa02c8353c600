package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"coursely/internal/realtime"
	"coursely/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaMirrorConfig contains configuration for the Kafka event mirror
type KafkaMirrorConfig struct {
	Brokers      []string
	Topic        string
	RetryMax     int
	TimeoutMs    int
	RequiredAcks sarama.RequiredAcks
}

// DefaultKafkaMirrorConfig returns a default mirror configuration
func DefaultKafkaMirrorConfig() *KafkaMirrorConfig {
	return &KafkaMirrorConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "registration-events",
		RetryMax:     3,
		TimeoutMs:    10000,
		RequiredAcks: sarama.WaitForAll,
	}
}

// KafkaMirror forwards every committed registration event from the
// in-process bus to a Kafka topic, keyed by course so downstream
// consumers see per-course order. Mirroring is best-effort: a publish
// failure is logged, never surfaced to the request path.
type KafkaMirror struct {
	producer sarama.SyncProducer
	config   *KafkaMirrorConfig
	bus      *realtime.Bus
}

// NewKafkaMirror creates the mirror and connects the producer
func NewKafkaMirror(config *KafkaMirrorConfig, bus *realtime.Bus) (*KafkaMirror, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond

	// Hash partitioner keyed by course keeps per-course event order
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaMirror{
		producer: producer,
		config:   config,
		bus:      bus,
	}, nil
}

// Run consumes the bus firehose until ctx is cancelled
func (m *KafkaMirror) Run(ctx context.Context) {
	sub := m.bus.SubscribeAll()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			if env.Type == realtime.TypeDisconnect {
				continue
			}
			m.publish(env)
		}
	}
}

func (m *KafkaMirror) publish(env realtime.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		logger.GetDefault().Error("failed to marshal envelope for Kafka",
			slog.String("type", env.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	key := env.CourseID
	if key == "" {
		key = env.StudentID
	}

	message := &sarama.ProducerMessage{
		Topic:     m.config.Topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: env.Timestamp,
	}

	if _, _, err := m.producer.SendMessage(message); err != nil {
		logger.GetDefault().Warn("failed to mirror event to Kafka",
			slog.String("type", env.Type),
			slog.String("course_id", env.CourseID),
			slog.String("error", err.Error()),
		)
	}
}

// Close shuts the producer down
func (m *KafkaMirror) Close() error {
	return m.producer.Close()
}
