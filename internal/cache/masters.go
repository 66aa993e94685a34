package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/metrics"
	"github.com/ai2b/zena/internal/store"
)

// FetchFunc loads the masters of a channel from the source of truth.
type FetchFunc func(ctx context.Context, channelID string) ([]store.Master, error)

// Options tune the masters cache.
type Options struct {
	RefreshEvery time.Duration // serve stale and refresh past this age
	ValueTTL     time.Duration // hard expiry of cached values in Redis
	LockTTL      time.Duration // refresh lock lifetime
}

// MastersCache serves each channel's masters with stale-while-revalidate
// semantics. Values live in Redis so all workers share them; a refresh past
// the soft age happens in the background under a distributed lock, and the
// stale value keeps being served meanwhile. When Redis is unreachable the
// cache degrades to a per-process in-memory copy rather than failing the
// dialog.
type MastersCache struct {
	rdb   *redis.Client // nil means memory-only
	fetch FetchFunc
	opts  Options
	log   *logging.Logger
	now   func() time.Time

	mu       sync.Mutex
	memory   map[string]memoryEntry
	inflight map[string]struct{}
}

type memoryEntry struct {
	masters   []store.Master
	updatedAt time.Time
}

// New creates a masters cache. rdb may be nil for memory-only operation.
func New(rdb *redis.Client, fetch FetchFunc, opts Options, log *logging.Logger) *MastersCache {
	return &MastersCache{
		rdb:      rdb,
		fetch:    fetch,
		opts:     opts,
		log:      log.Sub("masters"),
		now:      time.Now,
		memory:   make(map[string]memoryEntry),
		inflight: make(map[string]struct{}),
	}
}

func dataKey(channelID string) string { return "masters:" + channelID }
func metaKey(channelID string) string { return "masters:" + channelID + ":updated_at" }
func lockKey(channelID string) string { return "masters:" + channelID + ":lock" }

// Get returns the masters of a channel. A cached value is returned even
// when past the refresh age; the refresh then runs in the background. Only
// a fully cold entry blocks on the fetch.
func (c *MastersCache) Get(ctx context.Context, channelID string) ([]store.Master, error) {
	if masters, age, ok := c.redisGet(ctx, channelID); ok {
		if age > c.opts.RefreshEvery {
			c.refreshAsync(channelID)
		}
		return masters, nil
	}

	c.mu.Lock()
	entry, ok := c.memory[channelID]
	c.mu.Unlock()
	if ok {
		if c.now().Sub(entry.updatedAt) > c.opts.RefreshEvery {
			c.refreshAsync(channelID)
		}
		return entry.masters, nil
	}

	// Cold entry: fetch synchronously
	return c.Refresh(ctx, channelID)
}

// Refresh fetches the masters from the source and stores them. Concurrent
// refreshes of the same channel across workers are throttled by the Redis
// lock; a worker that loses the lock just returns its current best value.
func (c *MastersCache) Refresh(ctx context.Context, channelID string) ([]store.Master, error) {
	if c.rdb != nil {
		l, err := tryLock(ctx, c.rdb, lockKey(channelID), c.opts.LockTTL)
		if err != nil {
			c.log.Warn().Err(err).Str("channel_id", channelID).Msg("redis lock failed, refreshing without it")
		} else if l == nil {
			metrics.MastersRefresh.WithLabelValues("skipped").Inc()
			if masters, _, ok := c.redisGet(ctx, channelID); ok {
				return masters, nil
			}
			c.mu.Lock()
			entry, ok := c.memory[channelID]
			c.mu.Unlock()
			if ok {
				return entry.masters, nil
			}
			// Nothing cached yet, fetch anyway
		} else {
			defer func() {
				if err := l.release(context.WithoutCancel(ctx)); err != nil {
					c.log.Debug().Err(err).Str("channel_id", channelID).Msg("lock release failed")
				}
			}()
		}
	}

	masters, err := c.fetch(ctx, channelID)
	if err != nil {
		metrics.MastersRefresh.WithLabelValues("error").Inc()
		// Serve the last known value instead of failing the dialog
		c.mu.Lock()
		entry, ok := c.memory[channelID]
		c.mu.Unlock()
		if ok {
			c.log.Warn().Err(err).Str("channel_id", channelID).Msg("refresh failed, serving last known masters")
			return entry.masters, nil
		}
		return nil, err
	}

	c.storeValue(ctx, channelID, masters)
	metrics.MastersRefresh.WithLabelValues("ok").Inc()
	c.log.Debug().Str("channel_id", channelID).Int("masters", len(masters)).Msg("masters refreshed")
	return masters, nil
}

// refreshAsync starts one background refresh per channel per process.
func (c *MastersCache) refreshAsync(channelID string) {
	c.mu.Lock()
	if _, busy := c.inflight[channelID]; busy {
		c.mu.Unlock()
		return
	}
	c.inflight[channelID] = struct{}{}
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.inflight, channelID)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.Refresh(ctx, channelID); err != nil {
			c.log.Warn().Err(err).Str("channel_id", channelID).Msg("background refresh failed")
		}
	}()
}

// redisGet reads the cached value and its age from Redis.
func (c *MastersCache) redisGet(ctx context.Context, channelID string) ([]store.Master, time.Duration, bool) {
	if c.rdb == nil {
		return nil, 0, false
	}

	data, err := c.rdb.Get(ctx, dataKey(channelID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("channel_id", channelID).Msg("redis unavailable, using memory fallback")
		}
		return nil, 0, false
	}

	var masters []store.Master
	if err := json.Unmarshal(data, &masters); err != nil {
		c.log.Warn().Err(err).Str("channel_id", channelID).Msg("corrupt cache entry, refetching")
		return nil, 0, false
	}

	age := c.opts.RefreshEvery + time.Second // unknown age counts as stale
	if raw, err := c.rdb.Get(ctx, metaKey(channelID)).Result(); err == nil {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			age = c.now().Sub(time.Unix(unix, 0))
		}
	}
	return masters, age, true
}

// storeValue writes the value to Redis (data and updated_at atomically via
// a pipeline) and to the memory fallback.
func (c *MastersCache) storeValue(ctx context.Context, channelID string, masters []store.Master) {
	c.mu.Lock()
	c.memory[channelID] = memoryEntry{masters: masters, updatedAt: c.now()}
	c.mu.Unlock()

	if c.rdb == nil {
		return
	}

	data, err := json.Marshal(masters)
	if err != nil {
		c.log.Error().Err(err).Str("channel_id", channelID).Msg("failed to encode masters")
		return
	}

	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, dataKey(channelID), data, c.opts.ValueTTL)
	pipe.Set(ctx, metaKey(channelID), strconv.FormatInt(c.now().Unix(), 10), c.opts.ValueTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Str("channel_id", channelID).Msg("failed to write cache, memory copy kept")
	}
}
