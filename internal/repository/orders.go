package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const orderColumns = `id, order_number, idempotency_key, COALESCE(user_id, ''), session_id, email,
	shipping_address, subtotal, discount_amount, COALESCE(coupon_id::text, ''), COALESCE(coupon_code, ''),
	shipping_method, shipping_cost, total, currency, status, COALESCE(payment_intent_id, ''),
	COALESCE(payment_reference, ''), created_at, updated_at, paid_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateOrder writes the order header and all of its items in one
// transaction. Nothing is persisted if any insert fails.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	address, err := json.Marshal(order.Shipping)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (id, order_number, idempotency_key, user_id, session_id, email, shipping_address,
				subtotal, discount_amount, coupon_id, coupon_code, shipping_method, shipping_cost, total,
				currency, status)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NULLIF($10, '')::uuid, NULLIF($11, ''),
				$12, $13, $14, $15, $16)
			RETURNING created_at, updated_at`,
			order.ID,
			order.OrderNumber,
			order.IdempotencyKey,
			order.UserID,
			order.SessionID,
			order.Email,
			address,
			order.Subtotal,
			order.DiscountAmount,
			order.CouponID,
			order.CouponCode,
			order.ShippingMethod,
			order.ShippingCost,
			order.Total,
			order.Currency,
			order.Status,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			switch uniqueConstraint(err) {
			case "":
				return fmt.Errorf("insert order: %w", err)
			case "orders_order_number_key":
				return ErrDuplicateOrderNumber
			default:
				return ErrDuplicateIdempotencyKey
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, product_name, image_url, size, color,
				unit_price, quantity, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
		if err != nil {
			return fmt.Errorf("prepare order items: %w", err)
		}
		defer stmt.Close()

		for i, item := range order.Items {
			if _, err := stmt.ExecContext(ctx,
				order.ID, i, item.ProductID, item.ProductName, item.ImageURL, item.Size, item.Color,
				item.UnitPrice, item.Quantity, item.LineTotal,
			); err != nil {
				return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

func (r *Repository) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIdempotencyKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by idempotency key: %w", err)
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *Repository) ListOrdersBySession(ctx context.Context, sessionID string) ([]*domain.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
}

// ListOrders returns orders for the back office, newest first. An empty
// status lists every order.
func (r *Repository) ListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	return r.listOrders(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
}

func (r *Repository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_intent_id = $2, updated_at = NOW() WHERE id = $1`, id, intentID)
	if err != nil {
		return fmt.Errorf("set payment intent: %w", err)
	}
	return expectOneRow(res, ErrOrderNotFound)
}

// MarkPaid records a captured payment. A pending order moves to paid, and so
// does an order that was cancelled before it was ever paid, because the
// charge has already gone through. It reports true only for the call that
// performed the transition; an order that is already paid returns false with
// no error.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, reference string, paidAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, payment_reference = $3, paid_at = $4, updated_at = NOW()
		WHERE id = $1 AND (status = $5 OR (status = $6 AND paid_at IS NULL))`,
		id, domain.OrderStatusPaid, reference, paidAt, domain.OrderStatusPending, domain.OrderStatusCancelled)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	current, err := r.orderStatus(ctx, id)
	if err != nil {
		return false, err
	}
	if current == domain.OrderStatusPending || current == domain.OrderStatusCancelled {
		return false, ErrOrderStatusConflict
	}
	return false, nil
}

// UpdateStatus applies a monotonic status change.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	from, err := r.orderStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrOrderStatusConflict, from, to)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`, id, to, from)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if err := expectOneRow(res, ErrOrderStatusConflict); err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, id)
}

// CancelPending cancels an order only while it is still pending.
func (r *Repository) CancelPending(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`, id, domain.OrderStatusCancelled, domain.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return n == 1, nil
}

// ExpirePending cancels pending orders created before the cutoff and
// returns them so their payment intents can be voided.
func (r *Repository) ExpirePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Order, error) {
	return r.listOrders(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM orders WHERE status = $2 AND created_at < $3
			ORDER BY created_at LIMIT $4 FOR UPDATE SKIP LOCKED
		)
		RETURNING `+orderColumns,
		domain.OrderStatusCancelled, domain.OrderStatusPending, cutoff, limit)
}

func (r *Repository) orderStatus(ctx context.Context, id uuid.UUID) (domain.OrderStatus, error) {
	var status domain.OrderStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query order status: %w", err)
	}
	return status, nil
}

func (r *Repository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := r.loadItemsBatch(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	return r.loadItemsBatch(ctx, []*domain.Order{order})
}

func (r *Repository) loadItemsBatch(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, image_url, size, color, unit_price, quantity, line_total
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.ImageURL, &item.Size,
			&item.Color, &item.UnitPrice, &item.Quantity, &item.LineTotal); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var address []byte
	var paidAt sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.IdempotencyKey,
		&o.UserID,
		&o.SessionID,
		&o.Email,
		&address,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.CouponID,
		&o.CouponCode,
		&o.ShippingMethod,
		&o.ShippingCost,
		&o.Total,
		&o.Currency,
		&o.Status,
		&o.PaymentIntentID,
		&o.PaymentReference,
		&o.CreatedAt,
		&o.UpdatedAt,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.Shipping); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if paidAt.Valid {
		t := paidAt.Time
		o.PaidAt = &t
	}
	return &o, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
