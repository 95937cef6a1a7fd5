package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CheckStock_AllAvailable(t *testing.T) {
	v := NewValidator(setupStore(t))

	result, err := v.CheckStock(context.Background(), []domain.StockRequest{
		{ProductID: "A", Quantity: 10},
		{ProductID: "B", Quantity: 1},
	})

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
}

func TestValidator_CheckStock_ReportsEveryShortfall(t *testing.T) {
	v := NewValidator(setupStore(t))

	result, err := v.CheckStock(context.Background(), []domain.StockRequest{
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 2},
		{ProductID: "Z", Quantity: 1},
	})

	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 2)
	assert.Equal(t, domain.StockIssue{ProductID: "B", ProductName: "Denim Jacket", Requested: 2, Available: 1}, result.Issues[0])
	assert.Equal(t, domain.StockIssue{ProductID: "Z", ProductName: "Z", Requested: 1, Available: 0}, result.Issues[1])
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) GetStock(context.Context, []string) ([]StockInfo, error) {
	return nil, f.err
}

func (f failingStore) ApplyMovement(context.Context, domain.InventoryMovement) error {
	return f.err
}

func TestValidator_CheckStock_StoreError(t *testing.T) {
	boom := errors.New("db down")
	v := NewValidator(failingStore{err: boom})

	_, err := v.CheckStock(context.Background(), []domain.StockRequest{{ProductID: "A", Quantity: 1}})

	assert.ErrorIs(t, err, boom)
}

func TestValidator_Decrement_ContinuesPastFailures(t *testing.T) {
	store := setupStore(t)
	v := NewValidator(store)

	failed, err := v.Decrement(context.Background(), []domain.InventoryMovement{
		{ProductID: "Z", Quantity: 1, MovementType: domain.MovementOut, ReferenceID: "o1"},
		{ProductID: "A", Quantity: 2, MovementType: domain.MovementOut, ReferenceID: "o1"},
	})

	assert.Equal(t, 1, failed)
	assert.ErrorIs(t, err, ErrProductNotFound)
	stocks, _ := store.GetStock(context.Background(), []string{"A"})
	assert.Equal(t, 8, stocks[0].OnHand)
}
