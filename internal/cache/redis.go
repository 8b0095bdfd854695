package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key linkshelf writes, so Invalidate can scan
// for exactly its own entries on a shared Redis.
const KeyPrefix = "linkshelf:"

// GenerationKey holds the counter Invalidate increments. It lives outside
// the versioned key space and is never deleted.
const GenerationKey = KeyPrefix + "gen"

// Redis is a ListCache backed by a Redis server. Entries expire after ttl
// even if nothing invalidates them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ListCache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect parses a redis:// URL, builds a client and pings it once.
func Connect(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache: pinging redis: %w", err)
	}
	return NewRedis(client, ttl), nil
}

// Get reads and decodes a cached value. A missing key is a miss, not an error.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("cache: decoding %s: %w", key, err)
	}
	return true, nil
}

// Set encodes value as JSON and stores it with the cache TTL.
func (r *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", key, err)
	}
	if err := r.client.Set(ctx, KeyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Generation reads the counter. A missing counter is generation 0.
func (r *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, GenerationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache: reading generation: %w", err)
	}
	return gen, nil
}

// Invalidate increments the generation, then deletes the versioned entries
// under KeyPrefix. The increment alone is enough for correctness; the
// delete frees memory before the TTL does.
func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, GenerationKey).Err(); err != nil {
		return fmt.Errorf("cache: advancing generation: %w", err)
	}

	iter := r.client.Scan(ctx, 0, KeyPrefix+"v*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scanning keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: deleting keys: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}
