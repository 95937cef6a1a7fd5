package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// CanTransitionTo keeps order status monotonic.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ShippingAddress is the address snapshot stored with an order.
type ShippingAddress struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

// OrderItem is a denormalized snapshot of a cart line, decoupled from the
// live catalog.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ImageURL    string          `json:"image_url,omitempty"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	OrderNumber      string          `json:"order_number"`
	UserID           string          `json:"user_id,omitempty"`
	SessionID        string          `json:"-"`
	IdempotencyKey   string          `json:"-"`
	Email            string          `json:"email"`
	Shipping         ShippingAddress `json:"shipping_address"`
	Items            []OrderItem     `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	CouponID         string          `json:"coupon_id,omitempty"`
	CouponCode       string          `json:"coupon_code,omitempty"`
	ShippingMethod   string          `json:"shipping_method"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	Total            decimal.Decimal `json:"total"`
	Currency         string          `json:"currency"`
	Status           OrderStatus     `json:"status"`
	PaymentIntentID  string          `json:"payment_intent_id,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}

// OwnedBy reports whether the order belongs to the given session or user.
func (o *Order) OwnedBy(sessionID, userID string) bool {
	if userID != "" && o.UserID == userID {
		return true
	}
	return sessionID != "" && o.SessionID == sessionID
}

// StockMovements returns one outbound movement per product. Lines that differ
// only by size or color share a product's stock and are folded together.
func (o *Order) StockMovements() []InventoryMovement {
	var movements []InventoryMovement
	index := make(map[string]int)
	for _, item := range o.Items {
		if i, ok := index[item.ProductID]; ok {
			movements[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(movements)
		movements = append(movements, InventoryMovement{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			MovementType: MovementOut,
			Reason:       "order " + o.OrderNumber,
			ReferenceID:  o.ID.String(),
		})
	}
	return movements
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns a human-friendly order number such as
// SY241019-7KQ2ZD. Uniqueness is probabilistic and backed by a unique index.
func NewOrderNumber(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("SY")
	sb.WriteString(now.UTC().Format("060102"))
	sb.WriteByte('-')
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			n = big.NewInt(now.UnixNano() % max.Int64())
		}
		sb.WriteByte(orderNumberAlphabet[n.Int64()])
	}
	return sb.String()
}
