package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrAlreadyRedeemed = errors.New("coupon already redeemed for this order")
)

type Repository interface {
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
	RedeemCoupon(ctx context.Context, couponID, orderID, userID string) error
}

type Request struct {
	Code      string
	UserID    string
	CartTotal decimal.Decimal
}

type Validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// Validate checks a coupon against the cart total. Rejections are returned
// as an invalid result, not an error; nothing is mutated either way.
func (v *Validator) Validate(ctx context.Context, req Request) (*domain.CouponResult, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return reject(domain.CouponNotFound, "Coupon not found"), nil
	}

	c, err := v.repo.GetCouponByCode(ctx, code)
	if errors.Is(err, ErrCouponNotFound) {
		return reject(domain.CouponNotFound, "Coupon not found"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon %s: %w", code, err)
	}
	if !c.Active {
		return reject(domain.CouponNotFound, "Coupon not found"), nil
	}

	now := v.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return reject(domain.CouponNotFound, "Coupon not found"), nil
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return reject(domain.CouponExpired, "Coupon has expired"), nil
	}
	if req.CartTotal.LessThan(c.MinOrderValue) {
		return reject(domain.CouponMinimumNotMet,
			fmt.Sprintf("Minimum order of $%s not met", c.MinOrderValue.StringFixed(2))), nil
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return reject(domain.CouponUsageLimitReached, "Coupon usage limit reached"), nil
	}
	if c.PerUserLimit != nil && req.UserID != "" {
		used, err := v.repo.CountUserRedemptions(ctx, c.ID, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("count redemptions: %w", err)
		}
		if used >= *c.PerUserLimit {
			return reject(domain.CouponUsageLimitReached, "Coupon usage limit reached"), nil
		}
	}

	return &domain.CouponResult{
		Valid:          true,
		CouponID:       c.ID,
		Code:           c.Code,
		DiscountAmount: Discount(c, req.CartTotal),
	}, nil
}

// Redeem counts a coupon use against an order. Repeated calls for the same
// order are accepted silently.
func (v *Validator) Redeem(ctx context.Context, couponID, orderID, userID string) error {
	err := v.repo.RedeemCoupon(ctx, couponID, orderID, userID)
	if errors.Is(err, ErrAlreadyRedeemed) {
		return nil
	}
	return err
}

// Discount computes the discount for a cart total, rounded to cents.
func Discount(c *domain.Coupon, total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case domain.DiscountPercentage:
		amount = total.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscount.Valid && amount.GreaterThan(c.MaxDiscount.Decimal) {
			amount = c.MaxDiscount.Decimal
		}
	default:
		amount = c.DiscountValue
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func reject(reason domain.CouponRejection, msg string) *domain.CouponResult {
	return &domain.CouponResult{Valid: false, Reason: reason, Error: msg}
}
