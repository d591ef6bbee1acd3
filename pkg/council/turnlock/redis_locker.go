package turnlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"companion-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chat:turnlock:"

// Deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares turn locks between instances.
type RedisLocker struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger logger.ILogger
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, log logger.ILogger) *RedisLocker {
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, logger: log}
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("turnlock: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrTurnInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The turn context may be gone by now.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("TurnLock", "Failed to release turn lock", map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				})
			}
		})
	}, nil
}
