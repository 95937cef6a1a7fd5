// Package cache keeps a short-lived copy of carts in front of the cart store.
package cache

import (
	"context"
	"errors"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
)

// ErrCacheMiss means the caller must fall back to the cart store.
var ErrCacheMiss = errors.New("cache miss")

// CartCache is keyed by guest session. Writers invalidate, readers fill.
type CartCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

const keyPrefix = "emporium:cart:"

func cacheKey(sessionID string) string {
	return keyPrefix + sessionID
}
