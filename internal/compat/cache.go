package compat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache stores memoized predicate results. Lookups that miss return
// found=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache is a go-redis backed Cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedChecker memoizes another Checker per unordered pair. The predicate
// is pure over the two profiles, so stale entries only delay preference
// edits taking effect by at most the TTL. Cache failures fall through to
// the wrapped checker.
type CachedChecker struct {
	next  Checker
	cache Cache
	ttl   time.Duration
}

// NewCachedChecker wraps next with a memoization layer.
func NewCachedChecker(next Checker, cache Cache, ttl time.Duration) *CachedChecker {
	return &CachedChecker{next: next, cache: cache, ttl: ttl}
}

func (c *CachedChecker) IsCompatible(ctx context.Context, userA, userB string) (bool, error) {
	key := pairKey(userA, userB)

	if val, found, err := c.cache.Get(ctx, key); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("compat cache read failed")
	} else if found {
		return val == "1", nil
	}

	ok, err := c.next.IsCompatible(ctx, userA, userB)
	if err != nil {
		return false, err
	}

	val := "0"
	if ok {
		val = "1"
	}
	if err := c.cache.Set(ctx, key, val, c.ttl); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("compat cache write failed")
	}
	return ok, nil
}

// pairKey is orientation-independent, matching the predicate's symmetry.
func pairKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return "compat:" + userA + ":" + userB
}

var _ Checker = (*CachedChecker)(nil)
