package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiterForTest(t *testing.T) (*miniredis.Miniredis, *FixedWindowLimiter) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewFixedWindowLimiter(client, "rl_test")
}

func TestFixedWindowLimiter_AllowsUpToLimit(t *testing.T) {
	_, l := newLimiterForTest(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)

	other, err := l.Allow(ctx, "login:5.6.7.8", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestFixedWindowLimiter_NextWindowResets(t *testing.T) {
	_, l := newLimiterForTest(t)
	now := time.Date(2026, 5, 1, 12, 0, 30, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	d, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	now = now.Add(30 * time.Second)
	d, err = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_SetsExpiry(t *testing.T) {
	m, l := newLimiterForTest(t)
	_, err := l.Allow(context.Background(), "ttl", 5, 10*time.Second)
	require.NoError(t, err)

	keys := m.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 10*time.Second, m.TTL(keys[0]))
}

func TestFixedWindowLimiter_BackendDown(t *testing.T) {
	m, l := newLimiterForTest(t)
	m.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := l.Allow(ctx, "k", 1, time.Minute)
	require.Error(t, err)
}

func TestFixedWindowLimiter_NilClient(t *testing.T) {
	l := NewFixedWindowLimiter(nil, "")
	_, err := l.Allow(context.Background(), "k", 1, time.Minute)
	require.Error(t, err)
}

func TestFixedWindowLimiter_RejectsSubMillisecondWindow(t *testing.T) {
	_, l := newLimiterForTest(t)

	require.NotPanics(t, func() {
		_, err := l.Allow(context.Background(), "login:1.2.3.4", 3, 500*time.Microsecond)
		require.Error(t, err)
	})
}
