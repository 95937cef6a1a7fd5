package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/retry"
	"github.com/shopspring/decimal"
)

type CouponRequest struct {
	SessionID string
	UserID    string
	Code      string
	// CartTotal defaults to the session cart's total when nil.
	CartTotal *decimal.Decimal
}

type ShippingQuote struct {
	Options      []domain.ShippingOption       `json:"options"`
	FreeShipping shipping.FreeShippingProgress `json:"free_shipping"`
}

type PreviewRequest struct {
	SessionID      string
	UserID         string
	CouponCode     string
	CountryCode    string
	ShippingMethod string
}

// Preview is the price breakdown shown before the order is placed.
type Preview struct {
	Totals       domain.Totals                 `json:"totals"`
	Coupon       *domain.CouponResult          `json:"coupon,omitempty"`
	Options      []domain.ShippingOption       `json:"shipping_options"`
	Selected     *domain.SelectedShipping      `json:"selected_shipping,omitempty"`
	FreeShipping shipping.FreeShippingProgress `json:"free_shipping"`
	ItemCount    int                           `json:"item_count"`
}

// CheckStock reports shortfalls for the requested quantities without
// reserving anything.
func (s *CheckoutService) CheckStock(ctx context.Context, requests []domain.StockRequest) (*domain.StockResult, error) {
	for _, r := range requests {
		if r.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
	}
	result, err := retry.Read(ctx, s.cfg.Retry, func(ctx context.Context) (*domain.StockResult, error) {
		return s.stock.CheckStock(ctx, requests)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check stock: %w", err)
	}
	return result, nil
}

// ValidateCoupon checks a code without reserving or redeeming it.
func (s *CheckoutService) ValidateCoupon(ctx context.Context, req *CouponRequest) (*domain.CouponResult, error) {
	total := decimal.Zero
	if req.CartTotal != nil {
		total = *req.CartTotal
	} else if req.SessionID != "" {
		cart, err := s.carts.GetCart(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get cart: %w", err)
		}
		total = cart.TotalPrice()
	}
	return s.checkCoupon(ctx, req.Code, req.UserID, total)
}

func (s *CheckoutService) QuoteShipping(ctx context.Context, req shipping.QuoteRequest) (*ShippingQuote, error) {
	req.CountryCode = s.country(req.CountryCode)
	options, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ShippingQuote{Options: options, FreeShipping: s.shipping.Progress(req.CountryCode, req.OrderAmount)}, nil
}

// PreviewTotals prices the session cart with the given coupon and shipping
// method. An invalid coupon is reported in the result and left out of the
// totals.
func (s *CheckoutService) PreviewTotals(ctx context.Context, req *PreviewRequest) (*Preview, error) {
	cart, err := s.carts.GetCart(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	subtotal := cart.TotalPrice()
	preview := &Preview{ItemCount: cart.ItemCount()}

	discount := decimal.Zero
	if strings.TrimSpace(req.CouponCode) != "" {
		result, err := s.checkCoupon(ctx, req.CouponCode, req.UserID, subtotal)
		if err != nil {
			return nil, err
		}
		preview.Coupon = result
		if result.Valid {
			discount = result.DiscountAmount
		}
	}

	amount := decimal.Max(subtotal.Sub(discount), decimal.Zero)
	country := s.country(req.CountryCode)
	options, err := s.quote(ctx, shipping.QuoteRequest{
		CountryCode: country,
		OrderAmount: amount,
		ItemCount:   cart.ItemCount(),
	})
	if err != nil {
		return nil, err
	}
	preview.Options = options
	preview.FreeShipping = s.shipping.Progress(country, amount)

	shippingCost := decimal.Zero
	if selected, ok := shipping.Pick(options, req.ShippingMethod); ok {
		preview.Selected = &selected
		shippingCost = selected.Cost
	} else if req.ShippingMethod != "" {
		return nil, ErrShippingMethodUnavailable
	}

	preview.Totals = domain.ComputeTotals(subtotal, discount, shippingCost)
	return preview, nil
}
