package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "session:" + accessID
}

func TestManagerLifecycle(t *testing.T) {
	store := newMemoryStore()
	manager := &Manager{store: store, ttl: 30 * time.Minute}
	ctx := context.Background()
	accessID := NewAccessID()

	require.NoError(t, manager.Open(ctx, accessID, 42))
	assert.Equal(t, "42", store.data["session:"+accessID])
	assert.Equal(t, 30*time.Minute, store.ttls["session:"+accessID])
	require.NoError(t, manager.Verify(ctx, accessID, 42))

	require.NoError(t, manager.Revoke(ctx, accessID))
	assert.ErrorIs(t, manager.Verify(ctx, accessID, 42), ErrRevoked)
}

func TestManagerVerifyChecksOwner(t *testing.T) {
	manager := &Manager{store: newMemoryStore(), ttl: time.Hour}
	ctx := context.Background()

	require.NoError(t, manager.Open(ctx, "jti-1", 7))
	assert.ErrorIs(t, manager.Verify(ctx, "jti-1", 8), ErrRevoked)
}

func TestManagerRejectsBlankAccessID(t *testing.T) {
	manager := &Manager{store: newMemoryStore(), ttl: time.Hour}
	ctx := context.Background()

	assert.ErrorIs(t, manager.Open(ctx, " ", 1), ErrEmptyAccessID)
	assert.ErrorIs(t, manager.Verify(ctx, "", 1), ErrEmptyAccessID)
	assert.ErrorIs(t, manager.Revoke(ctx, ""), ErrEmptyAccessID)
}

func TestManagerVerifySurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	manager := &Manager{store: store, ttl: time.Hour}

	err := manager.Verify(context.Background(), "abc", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRevoked)
}
