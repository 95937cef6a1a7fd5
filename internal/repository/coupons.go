package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/coupon"
	"github.com/google/uuid"
)

func (r *Repository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	var usageLimit, perUserLimit sql.NullInt64
	var validFrom, validTo sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value, min_order_value, max_discount, usage_limit,
			used_count, per_user_limit, valid_from, valid_to, active
		FROM coupons WHERE code = $1`, code,
	).Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinOrderValue, &c.MaxDiscount,
		&usageLimit, &c.UsedCount, &perUserLimit, &validFrom, &validTo, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, coupon.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}

	if usageLimit.Valid {
		v := int(usageLimit.Int64)
		c.UsageLimit = &v
	}
	if perUserLimit.Valid {
		v := int(perUserLimit.Int64)
		c.PerUserLimit = &v
	}
	if validFrom.Valid {
		c.ValidFrom = &validFrom.Time
	}
	if validTo.Valid {
		c.ValidTo = &validTo.Time
	}
	return &c, nil
}

func (r *Repository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM coupon_redemptions WHERE coupon_id = $1 AND user_id = $2`, couponID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count redemptions: %w", err)
	}
	return n, nil
}

// RedeemCoupon records one use of the coupon for an order and bumps the
// usage counter. An order can redeem at most once.
func (r *Repository) RedeemCoupon(ctx context.Context, couponID, orderID, userID string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO coupon_redemptions (coupon_id, order_id, user_id) VALUES ($1, $2, NULLIF($3, ''))`,
			couponID, orderID, userID)
		if uniqueConstraint(err) != "" {
			return coupon.ErrAlreadyRedeemed
		}
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`, couponID)
		if err != nil {
			return fmt.Errorf("increment coupon usage: %w", err)
		}
		return expectOneRow(res, coupon.ErrCouponNotFound)
	})
}

// CreateCoupon inserts a coupon; used by seeding and tests.
func (r *Repository) CreateCoupon(ctx context.Context, c *domain.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_order_value, max_discount,
			usage_limit, used_count, per_user_limit, valid_from, valid_to, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, coupon.NormalizeCode(c.Code), c.DiscountType, c.DiscountValue, c.MinOrderValue, c.MaxDiscount,
		c.UsageLimit, c.UsedCount, c.PerUserLimit, c.ValidFrom, c.ValidTo, c.Active)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}
