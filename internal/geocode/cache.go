package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MartinDM/data-app/internal/domain"
)

// ErrCacheMiss is returned by a Cache that holds no entry for a key.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores resolved addresses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedResolver consults a Cache before delegating to the next Resolver.
// Only resolved addresses are stored; failures and misses always go through.
type CachedResolver struct {
	next   Resolver
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResolver wraps next with cache.
func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: logger.With("component", "geocode_cache")}
}

// Reverse implements Resolver.
func (r *CachedResolver) Reverse(ctx context.Context, point domain.Coordinates) (string, error) {
	key := cacheKey(point)

	address, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		return address, nil
	case !errors.Is(err, ErrCacheMiss):
		r.logger.Warn("geocode cache read failed", "key", key, "error", err)
	}

	address, err = r.next.Reverse(ctx, point)
	if err != nil {
		return "", err
	}
	if err := r.cache.Set(ctx, key, address, r.ttl); err != nil {
		r.logger.Warn("geocode cache write failed", "key", key, "error", err)
	}
	return address, nil
}

// cacheKey rounds to five decimals, roughly one metre.
func cacheKey(p domain.Coordinates) string {
	return fmt.Sprintf("geocode:%.5f,%.5f", p.Lat, p.Lng)
}

// RedisCache is a Cache backed by go-redis.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache connects to the server at rawURL and pings it.
func NewRedisCache(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return value, err
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
