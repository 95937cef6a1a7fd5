package cartstore

import (
	"context"
	"errors"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// Store persists carts. Save is a compare-and-swap on Cart.Version: it
// succeeds only if the stored version still equals the one that was loaded,
// and bumps the version on success.
type Store interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}
