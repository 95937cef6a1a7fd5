package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
)

// Validator answers stock questions for checkout and applies the
// post-payment decrements.
type Validator struct {
	store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store}
}

// CheckStock is read-only. It reports every product whose on-hand stock is
// below the requested quantity; unknown products count as zero stock.
func (v *Validator) CheckStock(ctx context.Context, requests []domain.StockRequest) (*domain.StockResult, error) {
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ProductID)
	}

	stocks, err := v.store.GetStock(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get stock: %w", err)
	}
	byID := make(map[string]StockInfo, len(stocks))
	for _, s := range stocks {
		byID[s.ProductID] = s
	}

	result := &domain.StockResult{Valid: true}
	for _, r := range requests {
		info, ok := byID[r.ProductID]
		if ok && info.OnHand >= r.Quantity {
			continue
		}
		name := info.Name
		if name == "" {
			name = r.ProductID
		}
		result.Valid = false
		result.Issues = append(result.Issues, domain.StockIssue{
			ProductID:   r.ProductID,
			ProductName: name,
			Requested:   r.Quantity,
			Available:   info.OnHand,
		})
	}
	return result, nil
}

// Decrement applies each movement, continuing past failures. It returns the
// number of failed movements and the last error.
func (v *Validator) Decrement(ctx context.Context, movements []domain.InventoryMovement) (int, error) {
	failed := 0
	var lastErr error
	for _, m := range movements {
		if err := v.store.ApplyMovement(ctx, m); err != nil {
			failed++
			lastErr = fmt.Errorf("decrement %s: %w", m.ProductID, err)
			slog.ErrorContext(ctx, "inventory decrement failed",
				slog.String("product_id", m.ProductID),
				slog.String(logger.KeyOrderID, m.ReferenceID),
				slog.Int("quantity", m.Quantity),
				logger.Err(err))
		}
	}
	return failed, lastErr
}

// Adjust sets a product's on-hand stock level.
func (v *Validator) Adjust(ctx context.Context, productID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	return v.store.SetStock(ctx, productID, quantity)
}
