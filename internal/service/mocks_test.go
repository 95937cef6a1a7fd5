package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cache"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cartstore"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/coupon"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/inventory"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/payment"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/repository"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/retry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

// MockCartStore implements cartstore.Store with a version check.
type MockCartStore struct {
	mu        sync.Mutex
	carts     map[string]*domain.Cart
	Conflicts int // SaveCart calls that fail with a version conflict
	SaveCalls int
	DeleteErr error
}

func NewMockCartStore() *MockCartStore {
	return &MockCartStore{carts: make(map[string]*domain.Cart)}
}

func (m *MockCartStore) GetCart(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, cartstore.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (m *MockCartStore) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.Conflicts > 0 {
		m.Conflicts--
		return cartstore.ErrVersionConflict
	}
	if stored, ok := m.carts[cart.SessionID]; ok && stored.Version != cart.Version {
		return cartstore.ErrVersionConflict
	}
	cart.Version++
	cp := *cart
	cp.Items = append([]domain.CartItem(nil), cart.Items...)
	m.carts[cart.SessionID] = &cp
	return nil
}

func (m *MockCartStore) DeleteCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.carts[sessionID]; !ok {
		return cartstore.ErrCartNotFound
	}
	delete(m.carts, sessionID)
	return nil
}

// MockCache implements cache.CartCache
type MockCache struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	Deletes int
}

func NewMockCache() *MockCache {
	return &MockCache{carts: make(map[string]*domain.Cart)}
}

func (m *MockCache) Get(_ context.Context, sessionID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[sessionID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *MockCache) Set(_ context.Context, sessionID string, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = cart
	return nil
}

func (m *MockCache) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.carts, sessionID)
	return nil
}

// MockCatalog implements ProductCatalog
type MockCatalog struct {
	Products map[string]*domain.Product
}

func (m *MockCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	p, ok := m.Products[id]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	return p, nil
}

// MockOrderRepository implements OrderRepository
type MockOrderRepository struct {
	mu          sync.Mutex
	orders      map[uuid.UUID]*domain.Order
	byKey       map[string]uuid.UUID
	CreateErr   error
	CreateCalls int
	// DuplicateNumbers makes the next CreateOrder calls fail on the order number.
	DuplicateNumbers int
	MarkPaidCalls    int
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[uuid.UUID]*domain.Order),
		byKey:  make(map[string]uuid.UUID),
	}
}

func (m *MockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.DuplicateNumbers > 0 {
		m.DuplicateNumbers--
		return repository.ErrDuplicateOrderNumber
	}
	if _, ok := m.byKey[order.IdempotencyKey]; ok {
		return repository.ErrDuplicateIdempotencyKey
	}
	cp := *order
	m.orders[order.ID] = &cp
	m.byKey[order.IdempotencyKey] = order.ID
	return nil
}

func (m *MockOrderRepository) GetOrder(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	m.mu.Lock()
	id, ok := m.byKey[key]
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrIdempotencyKeyNotFound
	}
	return m.GetOrder(ctx, id)
}

func (m *MockOrderRepository) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (m *MockOrderRepository) ListOrdersBySession(_ context.Context, sessionID string) ([]*domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.SessionID == sessionID }), nil
}

func (m *MockOrderRepository) ListOrders(_ context.Context, status domain.OrderStatus, limit, _ int) ([]*domain.Order, error) {
	out := m.filter(func(o *domain.Order) bool { return status == "" || o.Status == status })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockOrderRepository) SetPaymentIntent(_ context.Context, id uuid.UUID, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.PaymentIntentID = intentID
	return nil
}

func (m *MockOrderRepository) MarkPaid(_ context.Context, id uuid.UUID, reference string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MarkPaidCalls++
	o, ok := m.orders[id]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	switch o.Status {
	case domain.OrderStatusPending:
		o.Status = domain.OrderStatusPaid
		o.PaymentReference = reference
		o.PaidAt = &paidAt
		return true, nil
	case domain.OrderStatusCancelled:
		if o.PaidAt != nil {
			return false, repository.ErrOrderStatusConflict
		}
		o.Status = domain.OrderStatusPaid
		o.PaymentReference = reference
		o.PaidAt = &paidAt
		return true, nil
	default:
		return false, nil
	}
}

func (m *MockOrderRepository) UpdateStatus(_ context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if !o.Status.CanTransitionTo(to) {
		return nil, repository.ErrOrderStatusConflict
	}
	o.Status = to
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) CancelPending(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderStatusPending {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	return true, nil
}

func (m *MockOrderRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MockOrderRepository) filter(keep func(*domain.Order) bool) []*domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

// MockGateway implements payment.Gateway
type MockGateway struct {
	mu           sync.Mutex
	intents      map[string]*payment.Intent // by idempotency key
	CreateErr    error
	ConfirmErr   error
	ConfirmDelay time.Duration
	ConfirmCalls atomic.Int32
	Cancelled    []string
	LastConfirm  payment.ConfirmRequest
	ConfirmKeys  []string
	// OnCaptured runs after a successful confirmation, before it is returned.
	OnCaptured func(req payment.ConfirmRequest)
}

func NewMockGateway() *MockGateway {
	return &MockGateway{intents: make(map[string]*payment.Intent)}
}

func (m *MockGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[req.IdempotencyKey]; ok {
		return intent, nil
	}
	n := len(m.intents) + 1
	intent := &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
		Status:       "requires_payment_method",
	}
	m.intents[req.IdempotencyKey] = intent
	return intent, nil
}

func (m *MockGateway) Confirm(_ context.Context, req payment.ConfirmRequest) (*payment.Confirmation, error) {
	m.ConfirmCalls.Add(1)
	if m.ConfirmDelay > 0 {
		time.Sleep(m.ConfirmDelay)
	}
	m.mu.Lock()
	m.LastConfirm = req
	m.ConfirmKeys = append(m.ConfirmKeys, req.IdempotencyKey)
	err := m.ConfirmErr
	onCaptured := m.OnCaptured
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if onCaptured != nil {
		onCaptured(req)
	}
	return &payment.Confirmation{IntentID: req.IntentID, Reference: "ch_" + req.IntentID}, nil
}

func (m *MockGateway) Cancel(_ context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancelled = append(m.Cancelled, intentID)
	return nil
}

func (m *MockGateway) SetConfirmErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmErr = err
}

// MockCouponRepository implements coupon.Repository
type MockCouponRepository struct {
	mu        sync.Mutex
	Coupons   map[string]*domain.Coupon
	Redeemed  map[string]string // order id -> coupon id
	RedeemErr error
}

func (m *MockCouponRepository) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	c, ok := m.Coupons[code]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	return c, nil
}

func (m *MockCouponRepository) CountUserRedemptions(context.Context, string, string) (int, error) {
	return 0, nil
}

func (m *MockCouponRepository) RedeemCoupon(_ context.Context, couponID, orderID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RedeemErr != nil {
		return m.RedeemErr
	}
	if _, ok := m.Redeemed[orderID]; ok {
		return coupon.ErrAlreadyRedeemed
	}
	m.Redeemed[orderID] = couponID
	return nil
}

// MockNotifier implements Notifier
type MockNotifier struct {
	mu    sync.Mutex
	Sent  []string
	Err   error
	Calls int
}

func (m *MockNotifier) OrderConfirmed(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, order.OrderNumber)
	return nil
}

type checkoutFixture struct {
	svc      *CheckoutService
	carts    *CartService
	store    *MockCartStore
	orders   *MockOrderRepository
	gateway  *MockGateway
	stock    *inventory.MemoryStore
	coupons  *MockCouponRepository
	notifier *MockNotifier
}

func newCheckoutFixture(t *testing.T, freeShippingThreshold int64) *checkoutFixture {
	t.Helper()

	stock := inventory.NewMemoryStore()
	stock.AddProduct("A", "Linen Shirt", 10)
	stock.AddProduct("B", "Denim Jacket", 1)
	stock.AddProduct("C", "Silk Scarf", 10)

	catalog := &MockCatalog{Products: map[string]*domain.Product{
		"A": {ID: "A", Name: "Linen Shirt", Price: decimal.RequireFromString("100.00"), Active: true},
		"B": {ID: "B", Name: "Denim Jacket", Price: decimal.RequireFromString("50.00"), Active: true},
		"C": {ID: "C", Name: "Silk Scarf", Price: decimal.RequireFromString("150.00"), Active: true},
	}}

	coupons := &MockCouponRepository{
		Coupons: map[string]*domain.Coupon{
			"SAVE20": {ID: "c-save20", Code: "SAVE20", DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(20), Active: true},
			"BIG":    {ID: "c-big", Code: "BIG", DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(500), Active: true},
			"MIN500": {ID: "c-min", Code: "MIN500", DiscountType: domain.DiscountFixed, DiscountValue: decimal.NewFromInt(5),
				MinOrderValue: decimal.NewFromInt(500), Active: true},
		},
		Redeemed: make(map[string]string),
	}

	store := NewMockCartStore()
	carts := NewCartService(store, NewMockCache(), catalog)
	inv := inventory.NewValidator(stock)
	couponValidator := coupon.NewValidator(coupons)
	notifier := &MockNotifier{}

	settler, err := NewSettler(inv, couponValidator, notifier, carts, noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	orders := NewMockOrderRepository()
	gateway := NewMockGateway()
	svc := NewCheckoutService(orders, carts, inv, couponValidator,
		shipping.NewCalculator(shipping.DefaultRates("US", decimal.NewFromInt(freeShippingThreshold))),
		gateway, settler, CheckoutConfig{
			Currency:        "usd",
			DomesticCountry: "US",
			Retry:           retry.Policy{Base: time.Millisecond, MaxRetries: 1, MaxDelay: time.Millisecond},
		})

	return &checkoutFixture{
		svc:      svc,
		carts:    carts,
		store:    store,
		orders:   orders,
		gateway:  gateway,
		stock:    stock,
		coupons:  coupons,
		notifier: notifier,
	}
}

func validForm() domain.ShippingForm {
	return domain.ShippingForm{
		Email:        "ada@example.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
		Country:      "US",
		Phone:        "555-0100",
	}
}
