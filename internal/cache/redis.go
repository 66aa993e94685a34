// Package cache implements the masters cache: a Redis-backed
// stale-while-revalidate cache of each channel's bookable masters, with an
// in-memory fallback so dialogs keep working when Redis is down.
package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// dockerRedisURL is the compose service address inside a container.
	dockerRedisURL = "redis://langgraph-redis:6379/0"
	// localRedisURL is used for bare-metal development runs.
	localRedisURL = "redis://localhost:6379/0"
)

// ResolveRedisURL picks the Redis address. An explicit URL always wins;
// otherwise the environment decides between the compose service name and
// localhost.
func ResolveRedisURL(explicit string, inDocker bool) string {
	if explicit != "" {
		return explicit
	}
	if inDocker {
		return dockerRedisURL
	}
	return localRedisURL
}

// NewRedisClient creates a go-redis client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
