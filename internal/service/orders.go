package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/repository"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
	"github.com/google/uuid"
)

const maxAdminPageSize = 100

func (s *CheckoutService) GetOrder(ctx context.Context, id uuid.UUID, sessionID, userID string) (*domain.Order, error) {
	return s.ownedOrder(ctx, id, sessionID, userID)
}

// ListOrders returns the signed-in user's orders, or the guest session's.
func (s *CheckoutService) ListOrders(ctx context.Context, sessionID, userID string) ([]*domain.Order, error) {
	var (
		orders []*domain.Order
		err    error
	)
	if userID != "" {
		orders, err = s.repo.ListOrdersByUser(ctx, userID)
	} else {
		orders, err = s.repo.ListOrdersBySession(ctx, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *CheckoutService) AdminListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", IllegalTransitionError, status)
	}
	if limit <= 0 || limit > maxAdminPageSize {
		limit = maxAdminPageSize
	}
	if offset < 0 {
		offset = 0
	}
	orders, err := s.repo.ListOrders(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// AdminUpdateStatus moves an order forward along its lifecycle.
func (s *CheckoutService) AdminUpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", IllegalTransitionError, to)
	}
	order, err := s.repo.UpdateStatus(ctx, id, to)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return nil, ErrOrderNotFound
	case errors.Is(err, repository.ErrOrderStatusConflict):
		return nil, fmt.Errorf("%w: %v", IllegalTransitionError, err)
	case err != nil:
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	slog.InfoContext(ctx, "order status updated",
		slog.String(logger.KeyOrderID, id.String()), slog.String("status", string(to)))
	return order, nil
}

// AdminSetStock sets a product's on-hand quantity.
func (s *CheckoutService) AdminSetStock(ctx context.Context, productID string, quantity int) error {
	if err := s.stock.Adjust(ctx, productID, quantity); err != nil {
		return err
	}
	slog.InfoContext(ctx, "stock adjusted", slog.String("product_id", productID), slog.Int("quantity", quantity))
	return nil
}
