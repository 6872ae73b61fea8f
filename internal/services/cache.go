package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
)

// RegionCache stores the full region list. Regions rarely change, so entries
// live until an admin edit invalidates them (or the optional TTL expires).
//
// Every invalidation bumps a generation counter. A reader takes the
// generation before loading from the database and passes it to SetRegions,
// which drops the write when an invalidation happened in between.
type RegionCache interface {
	GetRegions(ctx context.Context) ([]models.Region, bool, error)
	Generation(ctx context.Context) (int64, error)
	SetRegions(ctx context.Context, gen int64, regions []models.Region) error
	InvalidateRegions(ctx context.Context) error
}

// errStaleGeneration aborts a cache write that lost a race with an invalidation.
var errStaleGeneration = errors.New("cache: generation changed")

// RedisCache is the Redis-backed RegionCache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a cache writing JSON values. ttl 0 means no expiry.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetRegions(ctx context.Context) ([]models.Region, bool, error) {
	var regions []models.Region
	ok, err := c.get(ctx, CacheKey("regions", "all"), &regions)
	return regions, ok, err
}

func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, regionsGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation: %w", err)
	}
	return gen, nil
}

// SetRegions stores regions only if the generation is still gen. The check
// and the write run under WATCH so a concurrent invalidation wins.
func (c *RedisCache) SetRegions(ctx context.Context, gen int64, regions []models.Region) error {
	data, err := json.Marshal(regions)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, regionsGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, regionsKey, data, c.ttl)
			return nil
		})
		return err
	}, regionsGenKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache set regions: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateRegions(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, regionsGenKey)
		pipe.Del(ctx, regionsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache invalidate regions: %w", err)
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Cache miss, not an error
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s:%s", resource, identifier)
}

var (
	regionsKey    = CacheKeyPrefix + CacheKey("regions", "all")
	regionsGenKey = CacheKeyPrefix + CacheKey("regions", "gen")
)

type nopCache struct{}

func (nopCache) GetRegions(context.Context) ([]models.Region, bool, error) { return nil, false, nil }
func (nopCache) Generation(context.Context) (int64, error)                 { return 0, nil }
func (nopCache) SetRegions(context.Context, int64, []models.Region) error  { return nil }
func (nopCache) InvalidateRegions(context.Context) error                   { return nil }
