package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
)

const batchSize = 100

type OrderExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error)
}

type IntentCanceller interface {
	Cancel(ctx context.Context, intentID string) error
}

// Sweeper cancels orders that stayed unpaid past their TTL.
type Sweeper struct {
	orders   OrderExpirer
	payments IntentCanceller
	ttl      time.Duration
	tick     time.Duration
	now      func() time.Time
}

func New(orders OrderExpirer, payments IntentCanceller, ttl, tick time.Duration) *Sweeper {
	return &Sweeper{orders: orders, payments: payments, ttl: ttl, tick: tick, now: time.Now}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep expires one batch at a time until no stale pending orders remain.
// It returns the number of orders cancelled.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)
	total := 0
	for {
		orders, err := s.orders.ExpirePending(ctx, cutoff, batchSize)
		if err != nil {
			slog.ErrorContext(ctx, "failed to expire pending orders", logger.Err(err))
			return total
		}

		for _, order := range orders {
			slog.InfoContext(ctx, "expired unpaid order",
				slog.String(logger.KeyOrderID, order.ID.String()),
				slog.String("order_number", order.OrderNumber))
			if order.PaymentIntentID == "" {
				continue
			}
			if err := s.payments.Cancel(ctx, order.PaymentIntentID); err != nil {
				slog.WarnContext(ctx, "failed to cancel payment intent",
					slog.String(logger.KeyOrderID, order.ID.String()), logger.Err(err))
			}
		}

		total += len(orders)
		if len(orders) < batchSize {
			return total
		}
	}
}
