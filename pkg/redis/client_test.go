package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaokai/furniture-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}

	for i, wantAllowed := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, wantAllowed, allowed, "hit %d", i+1)
		assert.EqualValues(t, i+1, count)
	}
	assert.Equal(t, map[string]int64{"fz:rate_limit:login:ip:10.0.0.1": 60000}, fake.ttls, "window starts on first hit only")
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	key := client.IdempotencyKey("evt:processed:stripe-webhook", "evt_1")
	ok, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	client := &Client{cmd: fake}
	key := client.LockKey("cron-worker:prod")

	require.NoError(t, client.Set(ctx, key, "worker-a", time.Minute))

	deleted, err := client.CompareAndDelete(ctx, key, "worker-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = client.CompareAndDelete(ctx, key, "worker-a")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, fake.data, key)
}

func TestUninitializedClientErrors(t *testing.T) {
	var client Client
	assert.ErrorIs(t, client.Set(context.Background(), "k", "v", 0), errNotConnected)
	_, _, err := client.FixedWindowAllow(context.Background(), "s", 1, time.Second)
	assert.ErrorIs(t, err, errNotConnected)
	assert.NoError(t, client.Close())
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6380/2", PoolSize: 7, DialTimeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 4, opts.DB)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "fz:idempotency:orders:abc", client.IdempotencyKey("orders", "abc"))
	assert.Equal(t, "fz:rate_limit:login:ip:1.2.3.4", client.RateLimitKey("login:ip:1.2.3.4"))
	assert.Equal(t, "fz:session:access:jti-1", client.AccessSessionKey("jti-1"))
	assert.Equal(t, "fz:lock", client.LockKey(" "))
}

// fakeCommands runs the two scripts natively, keyed by their sha.
type fakeCommands struct {
	data map[string]string
	ttls map[string]int64
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{data: map[string]string{}, ttls: map[string]int64{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCommands) EvalSha(_ context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch sha {
	case fixedWindowScript.Hash():
		var n int64
		fmt.Sscan(f.data[key], &n)
		n++
		f.data[key] = fmt.Sprint(n)
		if n == 1 {
			f.ttls[key] = args[0].(int64)
		}
		return redis.NewCmdResult(n, nil)
	case compareAndDeleteScript.Hash():
		if v, ok := f.data[key]; ok && v == args[0] {
			delete(f.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("NOSCRIPT %s", sha))
}

func (f *fakeCommands) Eval(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected EVAL"))
}

func (f *fakeCommands) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeCommands) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeCommands) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeCommands) ScriptLoad(_ context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}
