package data

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/alumnet-cloud/entitlement-service/internal/biz"
	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

type redisCache struct {
	rdb *redis.Client
	log *log.Helper
}

// NewCache builds the redis-backed cache.
func NewCache(data *Data, logger log.Logger) biz.Cache {
	return &redisCache{
		rdb: data.rdb,
		log: log.NewHelper(logger),
	}
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", biz.ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, jitterTTL(ttl)).Err()
}

// jitterTTL spreads expiries so keys written together do not lapse together.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Intn(constants.CacheJitterMaxSeconds+1))*time.Second
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// DeletePattern removes every key matching the pattern. SCAN is used instead
// of KEYS so large keyspaces do not block redis.
func (c *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
