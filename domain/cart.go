package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// LineKey identifies a cart line. Two items with the same product but a
// different size or color are separate lines.
type LineKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type CartItem struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Quantity      int             `json:"quantity"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	AddedAt       time.Time       `json:"added_at"`
}

func (i CartItem) Key() LineKey {
	return LineKey{ProductID: i.ProductID, Size: i.SelectedSize, Color: i.SelectedColor}
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the session's shopping cart. Items keep insertion order.
type Cart struct {
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id,omitempty"`
	Items     []CartItem `json:"items"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(sessionID string, now time.Time) *Cart {
	return &Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
}

// Add merges the item into an existing line with the same key or appends a
// new line.
func (c *Cart) Add(item CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if idx := c.indexOf(item.Key()); idx >= 0 {
		c.Items[idx].Quantity += item.Quantity
		return nil
	}
	c.Items = append(c.Items, item)
	return nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line.
func (c *Cart) UpdateQuantity(key LineKey, quantity int) error {
	idx := c.indexOf(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	if quantity <= 0 {
		c.removeAt(idx)
		return nil
	}
	c.Items[idx].Quantity = quantity
	return nil
}

func (c *Cart) Remove(key LineKey) error {
	idx := c.indexOf(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	c.removeAt(idx)
	return nil
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// StockRequests folds cart lines into one request per product, since stock is
// tracked per product regardless of size or color.
func (c *Cart) StockRequests() []StockRequest {
	var out []StockRequest
	index := make(map[string]int)
	for _, item := range c.Items {
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, StockRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func (c *Cart) indexOf(key LineKey) int {
	for i, item := range c.Items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}
