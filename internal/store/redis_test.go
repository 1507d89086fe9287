package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisSetWithTTLExpires(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Ping(ctx))
	require.NoError(t, r.SetWithTTL(ctx, "killmail:1", -42, time.Minute))
	assert.True(t, mr.Exists("killmail:1"))
	assert.Equal(t, time.Minute, mr.TTL("killmail:1"))

	mr.FastForward(61 * time.Second)
	assert.False(t, mr.Exists("killmail:1"))
}

func TestRedisKeysAndMGet(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.SetWithTTL(ctx, "killmail:1", 100, time.Hour))
	require.NoError(t, r.SetWithTTL(ctx, "killmail:2", -50, time.Hour))
	require.NoError(t, mr.Set("unrelated", "x"))

	keys, err := r.Keys(ctx, "killmail:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"killmail:1", "killmail:2"}, keys)

	vals, err := r.MGet(ctx, []string{"killmail:1", "killmail:gone", "killmail:2"})
	require.NoError(t, err)
	require.Len(t, vals, 3)
	assert.Equal(t, int64(100), *vals[0])
	assert.Nil(t, vals[1])
	assert.Equal(t, int64(-50), *vals[2])

	vals, err = r.MGet(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestRedisMGetMalformed(t *testing.T) {
	r, mr := newTestRedis(t)
	require.NoError(t, mr.Set("killmail:9", "not-a-number"))

	_, err := r.MGet(context.Background(), []string{"killmail:9"})
	assert.Error(t, err)
}

func TestRedisFlush(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, r.SetWithTTL(ctx, "killmail:1", 1, time.Hour))

	require.NoError(t, r.Flush(ctx))
	assert.Empty(t, mr.Keys())
}

func TestRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	r := NewRedis(mr.Addr(), "", 0)
	defer r.Close()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, r.SetWithTTL(ctx, "killmail:1", 1, time.Hour))
}
