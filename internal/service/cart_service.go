package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cache"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cartstore"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/inventory"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const maxCartWriteAttempts = 3

// ProductCatalog prices cart lines. The client never supplies prices.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type AddItemRequest struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// CartService is the only writer of session carts.
type CartService struct {
	store   cartstore.Store
	cache   cache.CartCache
	catalog ProductCatalog
	sfg     singleflight.Group // Prevents cache stampede
	now     func() time.Time
}

func NewCartService(store cartstore.Store, cache cache.CartCache, catalog ProductCatalog) *CartService {
	return &CartService{
		store:   store,
		cache:   cache,
		catalog: catalog,
		now:     time.Now,
	}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.WarnContext(ctx, "cart cache get failed", slog.String(logger.KeySessionID, sessionID), logger.Err(err))
		}

		cart, err = s.store.GetCart(ctx, sessionID)
		if errors.Is(err, cartstore.ErrCartNotFound) {
			return domain.NewCart(sessionID, s.now()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}

		if errSet := s.cache.Set(ctx, sessionID, cart); errSet != nil {
			slog.WarnContext(ctx, "cart cache set failed", slog.String(logger.KeySessionID, sessionID), logger.Err(errSet))
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem prices the line from the catalog and merges it into the cart.
func (s *CartService) AddItem(ctx context.Context, sessionID, userID string, req AddItemRequest) (*domain.Cart, error) {
	if req.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, inventory.ErrProductNotFound) {
		return nil, ErrProductUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", req.ProductID, err)
	}
	if !product.Active {
		return nil, ErrProductUnavailable
	}

	return s.mutate(ctx, sessionID, userID, func(cart *domain.Cart) error {
		return cart.Add(domain.CartItem{
			ProductID:     product.ID,
			Name:          product.Name,
			UnitPrice:     product.Price,
			Quantity:      req.Quantity,
			SelectedSize:  req.Size,
			SelectedColor: req.Color,
			ImageURL:      product.ImageURL,
			AddedAt:       s.now(),
		})
	})
}

// UpdateQuantity sets a line's quantity; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "", func(cart *domain.Cart) error {
		return cart.UpdateQuantity(key, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (*domain.Cart, error) {
	return s.mutate(ctx, sessionID, "", func(cart *domain.Cart) error {
		return cart.Remove(key)
	})
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	err := s.store.DeleteCart(ctx, sessionID)
	if err != nil && !errors.Is(err, cartstore.ErrCartNotFound) {
		slog.ErrorContext(ctx, "cart delete failed", slog.String(logger.KeySessionID, sessionID), logger.Err(err))
		return fmt.Errorf("delete cart: %w", err)
	}

	invalidateCache(s, sessionID)
	return nil
}

// mutate loads the stored cart, applies fn and writes it back with a version
// check. A concurrent write causes a reload and a fresh attempt.
func (s *CartService) mutate(ctx context.Context, sessionID, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 1; ; attempt++ {
		cart, err := s.store.GetCart(ctx, sessionID)
		if errors.Is(err, cartstore.ErrCartNotFound) {
			cart = domain.NewCart(sessionID, s.now())
		} else if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}

		if err := fn(cart); err != nil {
			return nil, err
		}
		if userID != "" {
			cart.UserID = userID
		}
		cart.UpdatedAt = s.now()

		err = s.store.SaveCart(ctx, cart)
		if errors.Is(err, cartstore.ErrVersionConflict) && attempt < maxCartWriteAttempts {
			slog.DebugContext(ctx, "cart version conflict, retrying",
				slog.String(logger.KeySessionID, sessionID), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save cart: %w", err)
		}

		invalidateCache(s, sessionID)
		return cart, nil
	}
}

func invalidateCache(s *CartService, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		slog.Warn("cart cache invalidate failed", slog.String(logger.KeySessionID, sessionID), logger.Err(err))
	}
}
