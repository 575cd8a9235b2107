package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/logger"
)

const defaultWriteTimeout = 10 * time.Second

// messageWriter is the subset of kafka.Writer the producer relies on.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes outbox events to Kafka topics.
type Producer struct {
	writer  messageWriter
	brokers []string
	timeout time.Duration
}

// NewProducer builds a topic-less writer so each message names its own topic.
func NewProducer(ctx context.Context, cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		WriteTimeout:           timeout,
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("kafka producer initialized (%s)", strings.Join(brokers, ",")))
	}
	return &Producer{writer: w, brokers: brokers, timeout: timeout}, nil
}

// Publish writes one message keyed by the aggregate so events for the same
// entity land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka producer not initialized")
	}
	if strings.TrimSpace(topic) == "" {
		return errors.New("kafka topic is required")
	}

	headers := make([]kafka.Header, 0, len(attrs))
	for k, v := range attrs {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
		Time:    time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	if p == nil {
		return errors.New("kafka producer not initialized")
	}
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := (&kafka.Dialer{Timeout: p.timeout}).DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("kafka: no broker reachable: %w", lastErr)
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
