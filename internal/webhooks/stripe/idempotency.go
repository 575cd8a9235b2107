package stripewebhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kaokai/furniture-backend/pkg/redis"
)

// Consumer names the processed-event scope for gateway deliveries.
const Consumer = "stripe-webhook"

const processedScope = "evt:processed:" + Consumer

// IdempotencyGuard remembers which gateway event ids were already handled.
// Marks live at fz:idempotency:evt:processed:stripe-webhook:<event_id>.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard keeps marks for ttl; zero keeps them forever.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when eventID was seen before.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	fresh, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !fresh, nil
}

// Delete forgets eventID so the gateway's retry is processed again.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(processedScope, eventID), nil
}
