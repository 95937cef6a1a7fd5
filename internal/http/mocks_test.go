package http

import (
	"context"
	"net/http"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/auth"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/payment"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/service"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const testJWTSecret = "test-secret"

type MockCartAPI struct {
	cart *domain.Cart
	err  error

	lastAdd     service.AddItemRequest
	lastKey     domain.LineKey
	lastQty     int
	lastSession string
	cleared     bool
}

func (m *MockCartAPI) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	m.lastSession = sessionID
	return m.cart, m.err
}

func (m *MockCartAPI) AddItem(ctx context.Context, sessionID, userID string, req service.AddItemRequest) (*domain.Cart, error) {
	m.lastSession = sessionID
	m.lastAdd = req
	return m.cart, m.err
}

func (m *MockCartAPI) UpdateQuantity(ctx context.Context, sessionID string, key domain.LineKey, quantity int) (*domain.Cart, error) {
	m.lastKey = key
	m.lastQty = quantity
	return m.cart, m.err
}

func (m *MockCartAPI) RemoveItem(ctx context.Context, sessionID string, key domain.LineKey) (*domain.Cart, error) {
	m.lastKey = key
	return m.cart, m.err
}

func (m *MockCartAPI) ClearCart(ctx context.Context, sessionID string) error {
	m.cleared = true
	return m.err
}

type MockCheckoutAPI struct {
	order   *domain.Order
	orders  []*domain.Order
	err     error
	place   *service.PlaceOrderResult
	confirm *service.ConfirmResult

	lastPlace    *service.PlaceOrderRequest
	lastConfirm  *service.ConfirmRequest
	lastWebhook  *payment.WebhookEvent
	lastStatus   domain.OrderStatus
	lastLimit    int
	lastOffset   int
	lastStockQty int
}

func (m *MockCheckoutAPI) CheckStock(ctx context.Context, requests []domain.StockRequest) (*domain.StockResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.StockResult{Valid: true}, nil
}

func (m *MockCheckoutAPI) ValidateCoupon(ctx context.Context, req *service.CouponRequest) (*domain.CouponResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CouponResult{Valid: true, Code: req.Code, DiscountAmount: decimal.NewFromInt(20)}, nil
}

func (m *MockCheckoutAPI) QuoteShipping(ctx context.Context, req shipping.QuoteRequest) (*service.ShippingQuote, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.ShippingQuote{}, nil
}

func (m *MockCheckoutAPI) PreviewTotals(ctx context.Context, req *service.PreviewRequest) (*service.Preview, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &service.Preview{ItemCount: 2}, nil
}

func (m *MockCheckoutAPI) PlaceOrder(ctx context.Context, req *service.PlaceOrderRequest) (*service.PlaceOrderResult, error) {
	m.lastPlace = req
	if m.err != nil {
		return nil, m.err
	}
	return m.place, nil
}

func (m *MockCheckoutAPI) ConfirmPayment(ctx context.Context, req *service.ConfirmRequest) (*service.ConfirmResult, error) {
	m.lastConfirm = req
	return m.confirm, m.err
}

func (m *MockCheckoutAPI) AbandonCheckout(ctx context.Context, orderID uuid.UUID, sessionID, userID string) (*domain.Order, error) {
	return m.order, m.err
}

func (m *MockCheckoutAPI) HandleWebhook(ctx context.Context, evt *payment.WebhookEvent) error {
	m.lastWebhook = evt
	return m.err
}

func (m *MockCheckoutAPI) GetOrder(ctx context.Context, id uuid.UUID, sessionID, userID string) (*domain.Order, error) {
	return m.order, m.err
}

func (m *MockCheckoutAPI) ListOrders(ctx context.Context, sessionID, userID string) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *MockCheckoutAPI) AdminListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	m.lastStatus = status
	m.lastLimit = limit
	m.lastOffset = offset
	return m.orders, m.err
}

func (m *MockCheckoutAPI) AdminUpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	m.lastStatus = to
	return m.order, m.err
}

func (m *MockCheckoutAPI) AdminSetStock(ctx context.Context, productID string, quantity int) error {
	m.lastStockQty = quantity
	return m.err
}

func testCart() *domain.Cart {
	cart := domain.NewCart("sess-1", time.Now())
	cart.Items = []domain.CartItem{
		{ProductID: "A", Name: "Linen Shirt", UnitPrice: decimal.NewFromInt(100), Quantity: 2, SelectedSize: "M"},
	}
	return cart
}

func testRouter(carts CartAPI, checkout CheckoutAPI) http.Handler {
	return NewRouter(RouterConfig{
		Carts:         carts,
		Checkout:      checkout,
		Verifier:      auth.NewVerifier(testJWTSecret),
		WebhookSecret: "whsec_test",
		Timeout:       5 * time.Second,
	})
}

func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{SessionID: sessionID}))
}
