package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/internal/port"
)

func newRedisLock(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl, nil), mr
}

func TestLockers(t *testing.T) {
	redisLock, _ := newRedisLock(t, time.Minute)

	lockers := map[string]port.Locker{
		"local": NewLocal(),
		"redis": redisLock,
	}

	for name, l := range lockers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			unlock, err := l.TryLock(ctx, "repo-a")
			require.NoError(t, err)

			_, err = l.TryLock(ctx, "repo-a")
			assert.ErrorIs(t, err, port.ErrRepoLocked)

			unlockB, err := l.TryLock(ctx, "repo-b")
			require.NoError(t, err, "other keys are independent")
			unlockB()

			unlock()
			unlock()

			unlock, err = l.TryLock(ctx, "repo-a")
			require.NoError(t, err)
			unlock()
		})
	}
}

func TestLocalSingleWinner(t *testing.T) {
	l := NewLocal()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.TryLock(context.Background(), "repo"); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestRedisLockExpires(t *testing.T) {
	l, mr := newRedisLock(t, time.Second)
	ctx := context.Background()

	stale, err := l.TryLock(ctx, "repo")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"repo"))

	mr.FastForward(2 * time.Second)

	unlock, err := l.TryLock(ctx, "repo")
	require.NoError(t, err)

	// the expired holder must not free the new holder's key
	stale()
	assert.True(t, mr.Exists(keyPrefix+"repo"))

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"repo"))
}

func TestRedisLockRefreshedWhileHeld(t *testing.T) {
	l, mr := newRedisLock(t, 300*time.Millisecond)
	ctx := context.Background()
	key := keyPrefix + "repo"

	unlock, err := l.TryLock(ctx, "repo")
	require.NoError(t, err)

	mr.FastForward(200 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL(key) > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond, "holder refreshes its key")

	// past the original expiry, the run is still going
	mr.FastForward(200 * time.Millisecond)
	require.True(t, mr.Exists(key))

	_, err = l.TryLock(ctx, "repo")
	assert.ErrorIs(t, err, port.ErrRepoLocked)

	unlock()
	assert.False(t, mr.Exists(key))

	unlock, err = l.TryLock(ctx, "repo")
	require.NoError(t, err)
	unlock()
}

func TestRedisUnavailable(t *testing.T) {
	l, mr := newRedisLock(t, time.Minute)
	mr.Close()

	_, err := l.TryLock(context.Background(), "repo")
	require.Error(t, err)
	assert.NotErrorIs(t, err, port.ErrRepoLocked)
}
