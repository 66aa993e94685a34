package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/store"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func testOptions() Options {
	return Options{
		RefreshEvery: time.Hour,
		ValueTTL:     7 * 24 * time.Hour,
		LockTTL:      30 * time.Second,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func staticFetch(masters []store.Master) (FetchFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(_ context.Context, _ string) ([]store.Master, error) {
		calls.Add(1)
		return masters, nil
	}, &calls
}

func TestResolveRedisURL(t *testing.T) {
	assert.Equal(t, "redis://custom:1234/0", ResolveRedisURL("redis://custom:1234/0", true))
	assert.Equal(t, "redis://langgraph-redis:6379/0", ResolveRedisURL("", true))
	assert.Equal(t, "redis://localhost:6379/0", ResolveRedisURL("", false))
}

func TestColdGetFetchesAndCaches(t *testing.T) {
	mr, rdb := newTestRedis(t)
	fetch, calls := staticFetch([]store.Master{{Name: "Ольга", ChannelID: "ch-1"}})
	c := New(rdb, fetch, testOptions(), testLogger())

	masters, err := c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "Ольга", masters[0].Name)
	assert.Equal(t, int32(1), calls.Load())

	// Value and timestamp landed in Redis
	assert.True(t, mr.Exists("masters:ch-1"))
	assert.True(t, mr.Exists("masters:ch-1:updated_at"))

	// Second get is served from Redis
	_, err = c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFreshValueIsNotRefreshed(t *testing.T) {
	_, rdb := newTestRedis(t)
	fetch, calls := staticFetch([]store.Master{{Name: "Анна"}})
	c := New(rdb, fetch, testOptions(), testLogger())

	_, err := c.Get(context.Background(), "ch-1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = c.Get(context.Background(), "ch-1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestStaleValueServedWhileRefreshing(t *testing.T) {
	mr, rdb := newTestRedis(t)

	stale := []store.Master{{Name: "Старая"}}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	mr.Set("masters:ch-1", string(data))
	// Written two hours ago, refresh age is one hour
	mr.Set("masters:ch-1:updated_at", strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10))

	fetch, _ := staticFetch([]store.Master{{Name: "Новая"}})
	c := New(rdb, fetch, testOptions(), testLogger())

	// The stale value is returned immediately
	masters, err := c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "Старая", masters[0].Name)

	// Background refresh eventually replaces it
	require.Eventually(t, func() bool {
		raw, err := mr.Get("masters:ch-1")
		if err != nil {
			return false
		}
		var got []store.Master
		if json.Unmarshal([]byte(raw), &got) != nil || len(got) == 0 {
			return false
		}
		return got[0].Name == "Новая"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryFallbackWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	fetch, calls := staticFetch([]store.Master{{Name: "Ирина"}})
	c := New(rdb, fetch, testOptions(), testLogger())

	_, err := c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load())

	mr.Close()

	// Redis is gone, the memory copy still answers
	masters, err := c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "Ирина", masters[0].Name)
}

func TestMemoryOnlyOperation(t *testing.T) {
	fetch, calls := staticFetch([]store.Master{{Name: "Мария"}})
	c := New(nil, fetch, testOptions(), testLogger())

	masters, err := c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, masters, 1)

	_, err = c.Get(context.Background(), "ch-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefreshFailureServesLastKnown(t *testing.T) {
	var fail atomic.Bool
	fetch := func(_ context.Context, _ string) ([]store.Master, error) {
		if fail.Load() {
			return nil, errors.New("source down")
		}
		return []store.Master{{Name: "Ольга"}}, nil
	}

	c := New(nil, fetch, testOptions(), testLogger())

	_, err := c.Refresh(context.Background(), "ch-1")
	require.NoError(t, err)

	fail.Store(true)
	masters, err := c.Refresh(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "Ольга", masters[0].Name)
}

func TestRefreshFailureColdEntryErrors(t *testing.T) {
	fetch := func(_ context.Context, _ string) ([]store.Master, error) {
		return nil, errors.New("source down")
	}
	c := New(nil, fetch, testOptions(), testLogger())

	_, err := c.Get(context.Background(), "ch-1")
	require.Error(t, err)
}

func TestLockRoundTrip(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	l1, err := tryLock(ctx, rdb, "masters:ch-1:lock", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, l1)

	// Second acquisition is refused
	l2, err := tryLock(ctx, rdb, "masters:ch-1:lock", 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, l2)

	require.NoError(t, l1.release(ctx))

	// Released lock can be taken again
	l3, err := tryLock(ctx, rdb, "masters:ch-1:lock", 30*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, l3)
}

func TestLockReleaseOnlyOwnToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	l, err := tryLock(ctx, rdb, "masters:ch-1:lock", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, l)

	// Another worker takes over after our lock expires
	mr.Set("masters:ch-1:lock", "other-token")

	require.NoError(t, l.release(ctx))
	val, err := mr.Get("masters:ch-1:lock")
	require.NoError(t, err)
	assert.Equal(t, "other-token", val)
}

func TestRefreshSkippedWhenLocked(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Set("masters:ch-1:lock", "held-elsewhere")

	stale := []store.Master{{Name: "Кэш"}}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	mr.Set("masters:ch-1", string(data))
	mr.Set("masters:ch-1:updated_at", strconv.FormatInt(time.Now().Unix(), 10))

	fetch, calls := staticFetch([]store.Master{{Name: "Новая"}})
	c := New(rdb, fetch, testOptions(), testLogger())

	masters, err := c.Refresh(context.Background(), "ch-1")
	require.NoError(t, err)
	require.Len(t, masters, 1)
	assert.Equal(t, "Кэш", masters[0].Name)
	assert.Equal(t, int32(0), calls.Load())
}
