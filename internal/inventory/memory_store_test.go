package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *MemoryStore {
	store := NewMemoryStore()
	store.AddProduct("A", "Linen Shirt", 10)
	store.AddProduct("B", "Denim Jacket", 1)
	return store
}

func TestMemoryStore_GetStock_OmitsUnknown(t *testing.T) {
	store := setupStore(t)

	stocks, err := store.GetStock(context.Background(), []string{"A", "B", "Z"})
	require.NoError(t, err)

	assert.Len(t, stocks, 2)
}

func TestMemoryStore_ApplyMovement_IsIdempotentPerReference(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	m := domain.InventoryMovement{ProductID: "A", Quantity: 3, MovementType: domain.MovementOut, ReferenceID: "order-1"}

	require.NoError(t, store.ApplyMovement(ctx, m))
	require.NoError(t, store.ApplyMovement(ctx, m))

	stocks, _ := store.GetStock(ctx, []string{"A"})
	assert.Equal(t, 7, stocks[0].OnHand)
	assert.Len(t, store.Movements(), 1)
}

func TestMemoryStore_ApplyMovement_FloorsAtZero(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.ApplyMovement(ctx, domain.InventoryMovement{ProductID: "B", Quantity: 5, MovementType: domain.MovementOut, ReferenceID: "order-2"}))

	stocks, _ := store.GetStock(ctx, []string{"B"})
	assert.Equal(t, 0, stocks[0].OnHand)
}

func TestMemoryStore_ApplyMovement_Errors(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.ApplyMovement(ctx, domain.InventoryMovement{ProductID: "Z", Quantity: 1, MovementType: domain.MovementOut}), ErrProductNotFound)
	assert.ErrorIs(t, store.ApplyMovement(ctx, domain.InventoryMovement{ProductID: "A", Quantity: 0, MovementType: domain.MovementOut}), ErrInvalidQuantity)
}

func TestMemoryStore_ConcurrentDecrements(t *testing.T) {
	store := NewMemoryStore()
	store.AddProduct("A", "Linen Shirt", 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.ApplyMovement(ctx, domain.InventoryMovement{
				ProductID:    "A",
				Quantity:     1,
				MovementType: domain.MovementOut,
				ReferenceID:  string(rune('a'+i%26)) + string(rune('0'+i/26)),
			})
		}(i)
	}
	wg.Wait()

	stocks, _ := store.GetStock(ctx, []string{"A"})
	assert.Equal(t, 50, stocks[0].OnHand)
}
