package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/inventory"
	"github.com/lib/pq"
)

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price, image_url, stock, active FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL, &p.Stock, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (r *Repository) UpsertProduct(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, image_url, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
			image_url = EXCLUDED.image_url, stock = EXCLUDED.stock, active = EXCLUDED.active,
			updated_at = NOW()`,
		p.ID, p.Name, p.Price, p.ImageURL, p.Stock, p.Active)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// GetStock implements inventory.Store.
func (r *Repository) GetStock(ctx context.Context, productIDs []string) ([]inventory.StockInfo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, stock FROM products WHERE id = ANY($1) AND active`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var out []inventory.StockInfo
	for rows.Next() {
		var s inventory.StockInfo
		if err := rows.Scan(&s.ProductID, &s.Name, &s.OnHand); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ApplyMovement records the movement and adjusts stock in one transaction.
// A movement already recorded for the same reference is skipped.
func (r *Repository) ApplyMovement(ctx context.Context, m domain.InventoryMovement) error {
	if m.Quantity <= 0 {
		return inventory.ErrInvalidQuantity
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var ref sql.NullString
		if m.ReferenceID != "" {
			ref = sql.NullString{String: m.ReferenceID, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_movements (product_id, quantity, movement_type, reason, reference_id)
			SELECT $1::text, $2::int, $3::text, $4::text, $5::text WHERE EXISTS (SELECT 1 FROM products WHERE id = $1)
			ON CONFLICT (reference_id, product_id, movement_type) WHERE reference_id IS NOT NULL DO NOTHING`,
			m.ProductID, m.Quantity, m.MovementType, m.Reason, ref)
		if err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		if n == 0 {
			if _, err := r.productExists(ctx, tx, m.ProductID); err != nil {
				return err
			}
			return nil
		}

		delta := m.Quantity
		if m.MovementType == domain.MovementOut {
			delta = -m.Quantity
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET stock = GREATEST(stock + $2, 0), updated_at = NOW() WHERE id = $1`,
			m.ProductID, delta)
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		return nil
	})
}

// SetStock implements inventory.Store. The difference is recorded as an
// adjustment movement.
func (r *Repository) SetStock(ctx context.Context, productID string, quantity int) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx,
			`SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.ErrProductNotFound
		}
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}
		if current == quantity {
			return nil
		}

		diff := quantity - current
		if diff < 0 {
			diff = -diff
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_movements (product_id, quantity, movement_type, reason)
			VALUES ($1, $2, $3, $4)`,
			productID, diff, domain.MovementAdjustment, fmt.Sprintf("stock set from %d to %d", current, quantity),
		); err != nil {
			return fmt.Errorf("insert adjustment: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, productID, quantity); err != nil {
			return fmt.Errorf("set stock: %w", err)
		}
		return nil
	})
}

func (r *Repository) productExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return false, inventory.ErrProductNotFound
	}
	return true, nil
}
