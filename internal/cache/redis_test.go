package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func sampleCart(sessionID string) *domain.Cart {
	return &domain.Cart{
		SessionID: sessionID,
		Items: []domain.CartItem{
			{ProductID: "A", Name: "Linen Shirt", UnitPrice: decimal.RequireFromString("49.90"), Quantity: 2, SelectedSize: "M"},
		},
		Version:   3,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestGet_Hit(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cart := sampleCart("sess-1")
	data, _ := json.Marshal(cart)
	require.NoError(t, mr.Set(cacheKey("sess-1"), string(data)))

	got, err := cache.Get(context.Background(), "sess-1")

	require.NoError(t, err)
	assert.Equal(t, "sess-1", got.SessionID)
	require.Len(t, got.Items, 1)
	assert.True(t, cart.Items[0].UnitPrice.Equal(got.Items[0].UnitPrice))
	assert.Equal(t, int64(3), got.Version)
}

func TestGet_Miss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background(), "nobody")

	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_CorruptEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("sess-1"), "{not json"))

	_, err := cache.Get(context.Background(), "sess-1")

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.False(t, mr.Exists(cacheKey("sess-1")), "corrupt entry should be dropped")
}

func TestSet_StoresWithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "sess-1", sampleCart("sess-1")))

	assert.True(t, mr.Exists(cacheKey("sess-1")))
	ttl := mr.TTL(cacheKey("sess-1"))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)

	mr.FastForward(21 * time.Minute)
	assert.False(t, mr.Exists(cacheKey("sess-1")))
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, cache.Set(context.Background(), "sess-1", sampleCart("sess-1")))

	require.NoError(t, cache.Delete(context.Background(), "sess-1"))

	assert.False(t, mr.Exists(cacheKey("sess-1")))
}

func TestRedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "sess-1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_UsesConfiguredTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	cache.ttl = func() time.Duration { return 2 * time.Minute }

	require.NoError(t, cache.Set(context.Background(), "sess-1", sampleCart("sess-1")))

	assert.Equal(t, 2*time.Minute, mr.TTL(cacheKey("sess-1")))
}

func TestJitteredTTL_Bounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		ttl := jitteredTTL()
		assert.GreaterOrEqual(t, ttl, cartTTL)
		assert.Less(t, ttl, cartTTL+ttlSpread)
	}
}
