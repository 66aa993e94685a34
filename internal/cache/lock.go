package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock reacquired by another worker is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// lock is a best-effort distributed lock keyed on one cache entry.
type lock struct {
	rdb   *redis.Client
	key   string
	token string
	ttl   time.Duration
}

// tryLock attempts to acquire the lock. Returns nil when another worker
// holds it.
func tryLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*lock, error) {
	token := uuid.New().String()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &lock{rdb: rdb, key: key, token: token, ttl: ttl}, nil
}

// release gives up the lock if we still hold it.
func (l *lock) release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
