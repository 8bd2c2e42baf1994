package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenTTL = 7 * 24 * time.Hour

// DedupCache is a Redis-backed hot path in front of the duplicate
// lookups in the database. Misses and errors fall through to the
// repository, so the cache is purely an optimization.
type DedupCache struct {
	client *redis.Client
}

func New(addr string) (*DedupCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &DedupCache{client: client}, nil
}

func (c *DedupCache) SeenGUID(ctx context.Context, guid string) (bool, error) {
	return c.exists(ctx, guidKey(guid))
}

func (c *DedupCache) SeenFingerprint(ctx context.Context, feedID, fingerprint string) (bool, error) {
	return c.exists(ctx, fingerprintKey(feedID, fingerprint))
}

func (c *DedupCache) MarkGUID(ctx context.Context, guid string) error {
	if guid == "" {
		return nil
	}
	return c.client.Set(ctx, guidKey(guid), "1", seenTTL).Err()
}

func (c *DedupCache) MarkFingerprint(ctx context.Context, feedID, fingerprint string) error {
	return c.client.Set(ctx, fingerprintKey(feedID, fingerprint), "1", seenTTL).Err()
}

func (c *DedupCache) Close() error {
	return c.client.Close()
}

func (c *DedupCache) exists(ctx context.Context, key string) (bool, error) {
	count, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return count > 0, nil
}

func guidKey(guid string) string {
	return "dedup:guid:" + guid
}

func fingerprintKey(feedID, fingerprint string) string {
	return "dedup:fp:" + feedID + ":" + fingerprint
}
