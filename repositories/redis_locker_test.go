package repositories

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewRedisLocker(client, ttl, discardLogger())
	l.retryEvery = 5 * time.Millisecond
	return l, mr
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	l, mr := newRedisLocker(t, 10*time.Second)
	key := TournamentLockKey(7)

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, mr.Exists(l.prefix+key))
	assert.Equal(t, 10*time.Second, mr.TTL(l.prefix+key))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.False(t, mr.Exists(l.prefix+key))

	again, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newRedisLocker(t, 10*time.Second)
	key := TournamentLockKey(8)

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	// Ключ истёк и его занял другой экземпляр.
	require.NoError(t, mr.Set(l.prefix+key, "other-instance"))
	unlock()

	got, err := mr.Get(l.prefix + key)
	require.NoError(t, err)
	assert.Equal(t, "other-instance", got)
}

func TestRedisLocker_RenewsWhileHeld(t *testing.T) {
	l, mr := newRedisLocker(t, 300*time.Millisecond)
	key := TournamentLockKey(9)

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(l.prefix+key) > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	unlock()
	assert.False(t, mr.Exists(l.prefix+key))
}
