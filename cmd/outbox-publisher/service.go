package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/kaokai/furniture-backend/pkg/config"
	"github.com/kaokai/furniture-backend/pkg/db/models"
	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/metrics"
	"github.com/kaokai/furniture-backend/pkg/outbox/registry"
)

const (
	publishTimeout  = 15 * time.Second
	maxLoopBackoff  = 30 * time.Second
	fallbackBatch   = 50
	fallbackPoll    = 500 * time.Millisecond
	fallbackMaxTry  = 10
	fallbackRetry   = 2 * time.Second
	fallbackRetryTo = 5 * time.Minute
	fallbackLease   = time.Minute
)

type pinger interface {
	Ping(context.Context) error
}

// broker is satisfied by the Pub/Sub client and the Kafka producer.
type broker interface {
	pinger
	Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error
}

type eventStore interface {
	Claim(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	Retry(ctx context.Context, id uuid.UUID, cause error, at time.Time) error
	Bury(ctx context.Context, id uuid.UUID, cause error, at time.Time) error
	Backlog(ctx context.Context) (pending, dead int64, err error)
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type PublisherParams struct {
	Config     config.OutboxConfig
	Logger     *logger.Logger
	DB         pinger
	Broker     broker
	BrokerName string
	Store      eventStore
	Resolver   resolver
	Metrics    *metrics.OutboxMetrics
}

// Publisher moves committed outbox rows to the broker, at least once. Each
// row is retried on its own exponential schedule and dead-lettered once it
// runs out of attempts or can never be delivered.
type Publisher struct {
	logg        *logger.Logger
	db          pinger
	broker      broker
	brokerName  string
	store       eventStore
	resolver    resolver
	metrics     *metrics.OutboxMetrics
	batch       int
	poll        time.Duration
	maxAttempts int
	retryBase   time.Duration
	retryMax    time.Duration
	lease       time.Duration
	now         func() time.Time
}

func NewPublisher(p PublisherParams) (*Publisher, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database is required")
	case p.Broker == nil:
		return nil, errors.New("broker is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Resolver == nil:
		return nil, errors.New("event registry is required")
	}
	cfg := p.Config
	return &Publisher{
		logg:        p.Logger,
		db:          p.DB,
		broker:      p.Broker,
		brokerName:  orDefault(p.BrokerName, "broker"),
		store:       p.Store,
		resolver:    p.Resolver,
		metrics:     p.Metrics,
		batch:       orDefault(cfg.BatchSize, fallbackBatch),
		poll:        orDefault(time.Duration(cfg.PollIntervalMS)*time.Millisecond, fallbackPoll),
		maxAttempts: orDefault(cfg.MaxAttempts, fallbackMaxTry),
		retryBase:   orDefault(cfg.RetryBase, fallbackRetry),
		retryMax:    orDefault(cfg.RetryMax, fallbackRetryTo),
		lease:       orDefault(cfg.Lease, fallbackLease),
		now:         time.Now,
	}, nil
}

func orDefault[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}

// Run fails fast if either end is unreachable at start, then polls until
// ctx is cancelled. A full batch is followed by another claim straight away.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := p.broker.Ping(ctx); err != nil {
		return fmt.Errorf("%s ping: %w", p.brokerName, err)
	}

	wait := p.poll
	for ctx.Err() == nil {
		n, err := p.drain(ctx)
		switch {
		case err != nil:
			p.logg.Error(ctx, "outbox.drain_failed", err)
			wait = min(wait*2, maxLoopBackoff)
		case n == p.batch:
			wait = p.poll
			continue
		default:
			wait = p.poll
		}
		p.reportBacklog(ctx)
		if err := sleep(ctx, jitter(wait)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// drain claims one batch and settles every row in it. Only bookkeeping
// failures abort the batch; broker failures are recorded on the row.
func (p *Publisher) drain(ctx context.Context) (int, error) {
	rows, err := p.store.Claim(ctx, p.batch, p.now(), p.lease)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	for _, row := range rows {
		if err := p.settle(ctx, row); err != nil {
			return len(rows), err
		}
	}
	return len(rows), nil
}

func (p *Publisher) settle(ctx context.Context, row models.OutboxEvent) error {
	eventType := string(row.EventType)
	ctx = p.logg.WithFields(ctx, map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   eventType,
		"aggregate_id": row.AggregateID,
		"attempt":      row.AttemptCount + 1,
		"broker":       p.brokerName,
	})

	resolved, err := p.resolver.Resolve(row)
	if err == nil {
		ctx = p.logg.WithFields(ctx, map[string]any{
			"event_id": resolved.Envelope.EventID,
			"topic":    resolved.Descriptor.Topic,
		})
		err = p.publish(ctx, row, resolved)
	}
	now := p.now()

	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		if markErr := p.store.MarkPublished(ctx, row.ID, now); markErr != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, markErr)
		}
		p.metrics.Delivered(eventType, metrics.DeliveryPublished)
		p.metrics.ObserveLag(eventType, now.Sub(row.CreatedAt))
		p.logg.Debug(ctx, "outbox.published")
	case errors.As(err, &permanent) || row.AttemptCount+1 >= p.maxAttempts:
		if markErr := p.store.Bury(ctx, row.ID, err, now); markErr != nil {
			return fmt.Errorf("dead-letter %s: %w", row.ID, markErr)
		}
		p.metrics.Delivered(eventType, metrics.DeliveryDead)
		p.logg.Error(ctx, "outbox.dead_lettered", err)
	default:
		next := now.Add(p.retryDelay(row.AttemptCount + 1))
		if markErr := p.store.Retry(ctx, row.ID, err, next); markErr != nil {
			return fmt.Errorf("reschedule %s: %w", row.ID, markErr)
		}
		p.metrics.Delivered(eventType, metrics.DeliveryRetried)
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{
			"error":      err.Error(),
			"next_retry": next,
		}), "outbox.retry_scheduled")
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no topic for %s", row.EventType))
	}
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID,
		"occurred_at":    resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.broker.Publish(ctx, topic, row.AggregateID, row.Payload, attrs)
}

// retryDelay doubles from retryBase per attempt up to retryMax.
func (p *Publisher) retryDelay(attempt int) time.Duration {
	d := p.retryBase
	for i := 1; i < attempt && d < p.retryMax; i++ {
		d *= 2
	}
	return min(d, p.retryMax)
}

func (p *Publisher) reportBacklog(ctx context.Context) {
	if p.metrics == nil {
		return
	}
	pending, dead, err := p.store.Backlog(ctx)
	if err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "outbox.backlog_unavailable")
		return
	}
	p.metrics.SetBacklog(pending, dead)
}

// jitter adds up to a fifth of d so idle replicas do not poll in step.
func jitter(d time.Duration) time.Duration {
	if d < 5 {
		return d
	}
	return d + rand.N(d/5)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
