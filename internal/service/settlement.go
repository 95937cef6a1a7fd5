package service

import (
	"context"
	"log/slog"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	TaskInventory = "inventory_decrement"
	TaskCoupon    = "coupon_redemption"
	TaskNotify    = "order_notification"
	TaskCart      = "cart_clear"
)

type StockDecrementer interface {
	Decrement(ctx context.Context, movements []domain.InventoryMovement) (int, error)
}

type CouponRedeemer interface {
	Redeem(ctx context.Context, couponID, orderID, userID string) error
}

type Notifier interface {
	OrderConfirmed(ctx context.Context, order *domain.Order) error
}

type CartClearer interface {
	ClearCart(ctx context.Context, sessionID string) error
}

// SettlementReport lists the bookkeeping tasks that failed.
type SettlementReport struct {
	Failed []string
}

// Settler runs the bookkeeping that follows a captured payment. The payment
// has already succeeded, so failures are logged and counted but never
// returned to the customer.
type Settler struct {
	stock    StockDecrementer
	coupons  CouponRedeemer
	notifier Notifier
	carts    CartClearer
	failures metric.Int64Counter
	settled  metric.Int64Counter
}

func NewSettler(stock StockDecrementer, coupons CouponRedeemer, notifier Notifier, carts CartClearer, meter metric.Meter) (*Settler, error) {
	failures, err := meter.Int64Counter("checkout.settlement.failures",
		metric.WithDescription("Post-payment bookkeeping tasks that failed"))
	if err != nil {
		return nil, err
	}
	settled, err := meter.Int64Counter("checkout.orders.settled",
		metric.WithDescription("Orders settled after payment"))
	if err != nil {
		return nil, err
	}
	return &Settler{
		stock:    stock,
		coupons:  coupons,
		notifier: notifier,
		carts:    carts,
		failures: failures,
		settled:  settled,
	}, nil
}

// Settle decrements stock, redeems the coupon, sends the confirmation and
// clears the cart, in that order. Every task runs even if an earlier one
// failed.
func (s *Settler) Settle(ctx context.Context, order *domain.Order) SettlementReport {
	var report SettlementReport
	log := slog.With(slog.String(logger.KeyOrderID, order.ID.String()), slog.String("order_number", order.OrderNumber))

	tasks := []struct {
		name string
		run  func() error
	}{
		{TaskInventory, func() error {
			_, err := s.stock.Decrement(ctx, order.StockMovements())
			return err
		}},
		{TaskCoupon, func() error {
			if order.CouponID == "" {
				return nil
			}
			return s.coupons.Redeem(ctx, order.CouponID, order.ID.String(), order.UserID)
		}},
		{TaskNotify, func() error {
			return s.notifier.OrderConfirmed(ctx, order)
		}},
		{TaskCart, func() error {
			return s.carts.ClearCart(ctx, order.SessionID)
		}},
	}

	for _, task := range tasks {
		if err := task.run(); err != nil {
			report.Failed = append(report.Failed, task.name)
			s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("task", task.name)))
			log.ErrorContext(ctx, "settlement task failed", slog.String("task", task.name), logger.Err(err))
		}
	}

	s.settled.Add(ctx, 1)
	log.InfoContext(ctx, "order settled", slog.Int("failed_tasks", len(report.Failed)))
	return report
}
