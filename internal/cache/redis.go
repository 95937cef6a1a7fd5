package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/redis/go-redis/v9"
)

const (
	cartTTL    = 15 * time.Minute
	ttlSpread  = 5 * time.Minute
	minCartTTL = time.Minute
)

// RedisCache stores carts as JSON. The cart store stays authoritative and
// every mutation drops the entry.
type RedisCache struct {
	client redis.Cmdable
	ttl    func() time.Duration
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client, ttl: jitteredTTL}
}

func (c *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	raw, err := c.client.Get(ctx, cacheKey(sessionID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("read cached cart: %w", err)
	}

	cart := new(domain.Cart)
	if err := json.Unmarshal(raw, cart); err != nil {
		// A stale or foreign entry is as good as a miss once removed.
		_ = c.client.Del(ctx, cacheKey(sessionID)).Err()
		return nil, fmt.Errorf("decode cached cart: %w", err)
	}
	return cart, nil
}

func (c *RedisCache) Set(ctx context.Context, sessionID string, cart *domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(sessionID), raw, c.ttl()).Err(); err != nil {
		return fmt.Errorf("write cached cart: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Unlink(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("drop cached cart: %w", err)
	}
	return nil
}

// jitteredTTL keeps carts cached at the same moment from expiring together.
func jitteredTTL() time.Duration {
	return max(minCartTTL, cartTTL+time.Duration(rand.Int63n(int64(ttlSpread))))
}
