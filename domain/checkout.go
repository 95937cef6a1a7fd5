package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShippingForm is the customer's contact and delivery details. It is valid
// when every required field is present.
type ShippingForm struct {
	Email        string `json:"email" validate:"required"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country,omitempty"`
	Phone        string `json:"phone" validate:"required"`
}

func (f ShippingForm) Address() ShippingAddress {
	return ShippingAddress{
		FirstName:    f.FirstName,
		LastName:     f.LastName,
		AddressLine1: f.AddressLine1,
		AddressLine2: f.AddressLine2,
		City:         f.City,
		State:        f.State,
		PostalCode:   f.PostalCode,
		Country:      f.Country,
		Phone:        f.Phone,
	}
}

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url,omitempty"`
	Stock    int             `json:"stock"`
	Active   bool            `json:"active"`
}

type StockRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type StockIssue struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

type StockResult struct {
	Valid  bool         `json:"valid"`
	Issues []StockIssue `json:"issues,omitempty"`
}

type MovementType string

const (
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

type InventoryMovement struct {
	ProductID    string       `json:"product_id"`
	Quantity     int          `json:"quantity"`
	MovementType MovementType `json:"movement_type"`
	Reason       string       `json:"reason"`
	ReferenceID  string       `json:"reference_id"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    *int
	UsedCount     int
	PerUserLimit  *int
	ValidFrom     *time.Time
	ValidTo       *time.Time
	Active        bool
}

type CouponRejection string

const (
	CouponNotFound          CouponRejection = "not_found"
	CouponExpired           CouponRejection = "expired"
	CouponMinimumNotMet     CouponRejection = "minimum_not_met"
	CouponUsageLimitReached CouponRejection = "usage_limit_reached"
)

type CouponResult struct {
	Valid          bool            `json:"valid"`
	CouponID       string          `json:"coupon_id,omitempty"`
	Code           string          `json:"code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Reason         CouponRejection `json:"reason,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// AppliedCoupon is the coupon attached to a checkout attempt.
type AppliedCoupon struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type ShippingOption struct {
	Method     string          `json:"method"`
	Label      string          `json:"label"`
	Cost       decimal.Decimal `json:"cost"`
	IsFree     bool            `json:"is_free"`
	EtaMinDays int             `json:"eta_min_days"`
	EtaMaxDays int             `json:"eta_max_days"`
}

type SelectedShipping = ShippingOption

// Totals is the price breakdown of a checkout attempt.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
	OverDiscount bool            `json:"-"`
}

// ComputeTotals returns subtotal - discount + shipping. A discount larger
// than the subtotal is clamped to it and flagged, so the total is never
// negative.
func ComputeTotals(subtotal, discount, shipping decimal.Decimal) Totals {
	t := Totals{
		Subtotal:     subtotal.Round(2),
		Discount:     discount.Round(2),
		ShippingCost: shipping.Round(2),
	}
	if t.Discount.IsNegative() {
		t.Discount = decimal.Zero
	}
	if t.Discount.GreaterThan(t.Subtotal) {
		t.Discount = t.Subtotal
		t.OverDiscount = true
	}
	if t.ShippingCost.IsNegative() {
		t.ShippingCost = decimal.Zero
	}
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.ShippingCost)
	return t
}
