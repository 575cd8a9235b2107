package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/kaokai/furniture-backend/pkg/config"
	redisclient "github.com/kaokai/furniture-backend/pkg/redis"
)

var (
	// ErrRevoked means the token is well formed but its session is gone,
	// either by logout or by reaching its TTL.
	ErrRevoked       = errors.New("session revoked")
	ErrEmptyAccessID = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	Verify(ctx context.Context, accessID string, userID int64) error
}

// Manager keeps one redis entry per issued access token, keyed by its jti
// and holding the owning user id. Entries live exactly as long as tokens.
type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.TTL() <= 0 {
		return nil, errors.New("access token ttl must be positive")
	}
	return &Manager{store: client, ttl: cfg.TTL()}, nil
}

func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", ErrEmptyAccessID
	}
	return m.store.AccessSessionKey(accessID), nil
}

func (m *Manager) Open(ctx context.Context, accessID string, userID int64) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, strconv.FormatInt(userID, 10), m.ttl)
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Verify returns ErrRevoked unless accessID is open and owned by userID.
// Any other error comes from the store.
func (m *Manager) Verify(ctx context.Context, accessID string, userID int64) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	owner, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redislib.Nil):
		return ErrRevoked
	case err != nil:
		return err
	case owner != strconv.FormatInt(userID, 10):
		return ErrRevoked
	}
	return nil
}
