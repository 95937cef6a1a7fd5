package inventory

import (
	"context"
	"sync"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
)

type movementKey struct {
	referenceID  string
	productID    string
	movementType domain.MovementType
}

// MemoryStore implements Store with in-memory storage
type MemoryStore struct {
	mu        sync.RWMutex
	stocks    map[string]*StockInfo
	movements []domain.InventoryMovement
	applied   map[movementKey]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stocks:  make(map[string]*StockInfo),
		applied: make(map[movementKey]struct{}),
	}
}

// AddProduct registers a product with its display name and stock level.
func (s *MemoryStore) AddProduct(productID, name string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[productID] = &StockInfo{ProductID: productID, Name: name, OnHand: quantity}
}

func (s *MemoryStore) GetStock(_ context.Context, productIDs []string) ([]StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StockInfo, 0, len(productIDs))
	for _, id := range productIDs {
		if stock, exists := s.stocks[id]; exists {
			result = append(result, *stock)
		}
	}
	return result, nil
}

func (s *MemoryStore) ApplyMovement(_ context.Context, m domain.InventoryMovement) error {
	if m.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stock, exists := s.stocks[m.ProductID]
	if !exists {
		return ErrProductNotFound
	}

	key := movementKey{m.ReferenceID, m.ProductID, m.MovementType}
	if m.ReferenceID != "" {
		if _, done := s.applied[key]; done {
			return nil
		}
		s.applied[key] = struct{}{}
	}

	switch m.MovementType {
	case domain.MovementOut:
		stock.OnHand -= m.Quantity
		if stock.OnHand < 0 {
			stock.OnHand = 0
		}
	default:
		stock.OnHand += m.Quantity
	}
	s.movements = append(s.movements, m)
	return nil
}

func (s *MemoryStore) SetStock(_ context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, exists := s.stocks[productID]
	if !exists {
		return ErrProductNotFound
	}
	stock.OnHand = quantity
	return nil
}

// Movements returns a copy of the recorded movements.
func (s *MemoryStore) Movements() []domain.InventoryMovement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.InventoryMovement, len(s.movements))
	copy(out, s.movements)
	return out
}
