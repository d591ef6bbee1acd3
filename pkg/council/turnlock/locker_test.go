package turnlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"companion-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryLockerRejectsSecondHolder(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	ctx := context.Background()

	release, err := l.TryAcquire(ctx, "session-1")
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, "session-1")
	assert.ErrorIs(t, err, ErrTurnInProgress)

	other, err := l.TryAcquire(ctx, "session-2")
	require.NoError(t, err)
	other()

	release()
	release()
	assert.False(t, l.Held("session-1"))

	again, err := l.TryAcquire(ctx, "session-1")
	require.NoError(t, err)
	again()
}

func TestMemoryLockerExpiredLease(t *testing.T) {
	l := NewMemoryLocker(time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	stale, err := l.TryAcquire(context.Background(), "s")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := l.TryAcquire(context.Background(), "s")
	require.NoError(t, err)

	// Releasing the stale lease must not free the new holder.
	stale()
	assert.True(t, l.Held("s"))

	fresh()
	assert.False(t, l.Held("s"))
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := NewMemoryLocker(0)

	var (
		wg       sync.WaitGroup
		winners  int32
		start    = make(chan struct{})
		releases = make(chan func(), 32)
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			release, err := l.TryAcquire(context.Background(), "hot")
			if err == nil {
				atomic.AddInt32(&winners, 1)
				releases <- release
			}
		}()
	}
	close(start)
	wg.Wait()
	close(releases)

	assert.Equal(t, int32(1), winners)
	for release := range releases {
		release()
	}
}

func TestMemoryLockerCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryLocker(time.Minute).TryAcquire(ctx, "s")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLockerUnavailable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	l := NewRedisLocker(rdb, time.Second, logger.NewNopLogger())
	_, err := l.TryAcquire(context.Background(), "s")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTurnInProgress)
}
