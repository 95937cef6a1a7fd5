package inventory

import (
	"context"
	"errors"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("movement quantity must be positive")
)

// StockInfo contains stock information for a product
type StockInfo struct {
	ProductID string
	Name      string
	OnHand    int
}

// Store is the stock ledger used by the validator and by post-payment
// settlement.
type Store interface {
	// GetStock returns stock for the given products. Unknown ids are omitted.
	GetStock(ctx context.Context, productIDs []string) ([]StockInfo, error)

	// ApplyMovement records a movement and adjusts on-hand stock. Applying
	// the same (reference, product, type) twice is a no-op.
	ApplyMovement(ctx context.Context, m domain.InventoryMovement) error

	// SetStock sets the on-hand level for a product
	SetStock(ctx context.Context, productID string, quantity int) error
}
