package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/config"
)

type stubWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *stubWriter) Close() error {
	s.closed = true
	return nil
}

func TestPublishSetsTopicKeyAndHeaders(t *testing.T) {
	w := &stubWriter{}
	p := &Producer{writer: w}

	err := p.Publish(context.Background(), "orders", "order-1", []byte(`{"a":1}`), map[string]string{"event_type": "order.created"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, "orders", msg.Topic)
	require.Equal(t, []byte("order-1"), msg.Key)
	require.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte("order.created")}}, msg.Headers)
}

func TestPublishWrapsWriterError(t *testing.T) {
	p := &Producer{writer: &stubWriter{err: errors.New("leader not available")}}
	err := p.Publish(context.Background(), "orders", "k", nil, nil)
	require.ErrorContains(t, err, "leader not available")
}

func TestPublishRequiresTopic(t *testing.T) {
	p := &Producer{writer: &stubWriter{}}
	require.Error(t, p.Publish(context.Background(), " ", "k", nil, nil))
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{" "}}, nil)
	require.Error(t, err)
}

func TestNewProducerDefaultsTimeout(t *testing.T) {
	p, err := NewProducer(context.Background(), config.KafkaConfig{Brokers: []string{"kafka:9092"}}, nil)
	require.NoError(t, err)
	require.Equal(t, defaultWriteTimeout, p.timeout)
	require.NoError(t, p.Close())
}
