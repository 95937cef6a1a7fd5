package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/coupon"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/payment"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/repository"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/retry"
	"github.com/cespare/xxhash/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	maxOrderNumberAttempts = 3
	idempotencyWindow      = 10 * time.Minute
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrdersBySession(ctx context.Context, sessionID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)
	SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string) error
	MarkPaid(ctx context.Context, id uuid.UUID, reference string, paidAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	CancelPending(ctx context.Context, id uuid.UUID) (bool, error)
}

type CartReader interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
}

type Inventory interface {
	CheckStock(ctx context.Context, requests []domain.StockRequest) (*domain.StockResult, error)
	Adjust(ctx context.Context, productID string, quantity int) error
}

type CouponChecker interface {
	Validate(ctx context.Context, req coupon.Request) (*domain.CouponResult, error)
}

type ShippingQuoter interface {
	Quote(ctx context.Context, req shipping.QuoteRequest) ([]domain.ShippingOption, error)
	Progress(countryCode string, amount decimal.Decimal) shipping.FreeShippingProgress
}

type CheckoutConfig struct {
	Currency        string
	DomesticCountry string
	Retry           retry.Policy
}

type PlaceOrderRequest struct {
	SessionID      string
	UserID         string
	IdempotencyKey string
	Form           domain.ShippingForm
	CouponCode     string
	ShippingMethod string
}

type PlaceOrderResult struct {
	Order        *domain.Order
	ClientSecret string
	State        domain.CheckoutStatus
	Duplicate    bool
}

type ConfirmRequest struct {
	OrderID         uuid.UUID
	PaymentMethodID string
	SessionID       string
	UserID          string
}

type ConfirmResult struct {
	Order        *domain.Order
	State        domain.CheckoutStatus
	ClientSecret string
}

// CheckoutService runs one checkout attempt: form, stock, coupon, shipping,
// order creation, payment and settlement.
type CheckoutService struct {
	repo     OrderRepository
	carts    CartReader
	stock    Inventory
	coupons  CouponChecker
	shipping ShippingQuoter
	gateway  payment.Gateway
	settler  *Settler
	validate *validator.Validate
	cfg      CheckoutConfig
	confirms singleflight.Group
	now      func() time.Time
}

func NewCheckoutService(
	repo OrderRepository,
	carts CartReader,
	stock Inventory,
	coupons CouponChecker,
	quoter ShippingQuoter,
	gateway payment.Gateway,
	settler *Settler,
	cfg CheckoutConfig,
) *CheckoutService {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &CheckoutService{
		repo:     repo,
		carts:    carts,
		stock:    stock,
		coupons:  coupons,
		shipping: quoter,
		gateway:  gateway,
		settler:  settler,
		validate: v,
		cfg:      cfg,
		now:      time.Now,
	}
}

// PlaceOrder validates the attempt, persists the order and opens a payment
// intent for it. A repeated submission with the same idempotency key returns
// the order created by the first one.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResult, error) {
	state := domain.CheckoutStatusFormIncomplete
	log := slog.With(slog.String(logger.KeySessionID, req.SessionID))

	if err := s.validateForm(req.Form); err != nil {
		return nil, err
	}
	if err := advance(&state, domain.CheckoutStatusFormValid); err != nil {
		return nil, err
	}

	cart, err := s.carts.GetCart(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	key := req.IdempotencyKey
	derived := key == ""
	if derived {
		key = deriveIdempotencyKey(req, cart, s.now())
	}
	existing, err := s.findReplay(ctx, &key, derived)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.InfoContext(ctx, "duplicate checkout request",
			slog.String("idempotency_key", key), slog.String(logger.KeyOrderID, existing.ID.String()),
			slog.String("status", string(existing.Status)))
		return s.resumeOrder(ctx, existing)
	}

	if err := advance(&state, domain.CheckoutStatusStockChecking); err != nil {
		return nil, err
	}
	stockResult, err := retry.Read(ctx, s.cfg.Retry, func(ctx context.Context) (*domain.StockResult, error) {
		return s.stock.CheckStock(ctx, cart.StockRequests())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check stock: %w", err)
	}
	if !stockResult.Valid {
		_ = advance(&state, domain.CheckoutStatusStockInsufficient)
		return nil, &StockError{Issues: stockResult.Issues}
	}
	if err := advance(&state, domain.CheckoutStatusStockOK); err != nil {
		return nil, err
	}

	subtotal := cart.TotalPrice()
	applied, err := s.applyCoupon(ctx, req.CouponCode, req.UserID, subtotal)
	if err != nil {
		return nil, err
	}
	discount := decimal.Zero
	if applied != nil {
		discount = applied.DiscountAmount
	}

	country := s.country(req.Form.Country)
	options, err := s.quote(ctx, shipping.QuoteRequest{
		CountryCode: country,
		OrderAmount: decimal.Max(subtotal.Sub(discount), decimal.Zero),
		ItemCount:   cart.ItemCount(),
	})
	if err != nil {
		return nil, err
	}
	selected, ok := shipping.Pick(options, req.ShippingMethod)
	if !ok {
		return nil, ErrShippingMethodUnavailable
	}

	totals := domain.ComputeTotals(subtotal, discount, selected.Cost)
	if totals.OverDiscount {
		log.WarnContext(ctx, "discount exceeds subtotal, clamped",
			slog.String("subtotal", subtotal.String()), slog.String("discount", discount.String()))
	}

	order := s.buildOrder(req, cart, key, country, applied, selected, totals)

	if err := advance(&state, domain.CheckoutStatusOrderCreating); err != nil {
		return nil, err
	}
	if err := s.createOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotencyKey) {
			winner, getErr := s.repo.GetOrderByIdempotencyKey(ctx, key)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load concurrent order: %w", getErr)
			}
			return s.resumeOrder(ctx, winner)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err := advance(&state, domain.CheckoutStatusOrderCreated); err != nil {
		return nil, err
	}
	log.InfoContext(ctx, "order created",
		slog.String(logger.KeyOrderID, order.ID.String()),
		slog.String("order_number", order.OrderNumber),
		slog.String("total", order.Total.StringFixed(2)))

	secret, err := s.ensureIntent(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := advance(&state, domain.CheckoutStatusPaymentPending); err != nil {
		return nil, err
	}

	return &PlaceOrderResult{Order: order, ClientSecret: secret, State: state}, nil
}

// ConfirmPayment submits the payment method for an order. Concurrent
// submissions for one order share a single provider call, and the call is
// not cancelled if the client goes away.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, req *ConfirmRequest) (*ConfirmResult, error) {
	order, err := s.ownedOrder(ctx, req.OrderID, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case domain.OrderStatusPaid, domain.OrderStatusShipped, domain.OrderStatusDelivered:
		return &ConfirmResult{Order: order, State: domain.CheckoutStatusDone}, nil
	case domain.OrderStatusCancelled:
		return nil, ErrOrderNotPayable
	}

	ctx = context.WithoutCancel(ctx)
	v, err, _ := s.confirms.Do(order.ID.String(), func() (interface{}, error) {
		return s.confirm(ctx, order, req.PaymentMethodID)
	})
	res, _ := v.(*ConfirmResult)
	return res, err
}

func (s *CheckoutService) confirm(ctx context.Context, order *domain.Order, paymentMethodID string) (*ConfirmResult, error) {
	state := domain.CheckoutStatusPaymentPending
	log := slog.With(slog.String(logger.KeyOrderID, order.ID.String()))

	// A caller that loaded the order before an earlier flight finished must
	// not charge again.
	current, err := s.getOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case domain.OrderStatusPending:
		order = current
	case domain.OrderStatusCancelled:
		return nil, ErrOrderNotPayable
	default:
		return &ConfirmResult{Order: current, State: domain.CheckoutStatusDone}, nil
	}

	if order.PaymentIntentID == "" {
		if _, err := s.ensureIntent(ctx, order); err != nil {
			return nil, err
		}
	}

	// Keys are per attempt: a retry after a decline must reach the provider
	// rather than replay the stored decline. The intent is captured at most once.
	conf, err := s.gateway.Confirm(ctx, payment.ConfirmRequest{
		IntentID:        order.PaymentIntentID,
		PaymentMethodID: paymentMethodID,
		IdempotencyKey:  fmt.Sprintf("confirm-%s-%s-%s", order.ID, paymentMethodID, uuid.NewString()),
	})

	var decline *payment.DeclineError
	var action *payment.ActionRequiredError
	switch {
	case errors.As(err, &decline):
		_ = advance(&state, domain.CheckoutStatusPaymentFailed)
		log.InfoContext(ctx, "payment declined", slog.String("code", decline.Code), slog.String("decline_code", decline.DeclineCode))
		return &ConfirmResult{Order: order, State: state}, &PaymentError{
			Code:        decline.Code,
			DeclineCode: decline.DeclineCode,
			Message:     decline.Message,
		}
	case errors.As(err, &action):
		return &ConfirmResult{Order: order, State: state, ClientSecret: action.ClientSecret}, ErrActionRequired
	case errors.Is(err, payment.ErrUnavailable):
		log.ErrorContext(ctx, "payment confirmation unavailable", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	case err != nil:
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	if err := advance(&state, domain.CheckoutStatusPaymentSucceeded); err != nil {
		return nil, err
	}
	paid, err := s.completePayment(ctx, order, conf.Reference, &state)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Order: paid, State: state}, nil
}

// HandleWebhook applies a provider event. Success settles the order exactly
// once, whichever of the webhook and the confirm call arrives first.
func (s *CheckoutService) HandleWebhook(ctx context.Context, evt *payment.WebhookEvent) error {
	log := slog.With(slog.String("event_id", evt.ID), slog.String("intent_id", evt.IntentID))
	if evt.Kind == payment.EventIgnored {
		return nil
	}

	id, err := uuid.Parse(evt.OrderID)
	if err != nil {
		log.WarnContext(ctx, "webhook without order reference")
		return nil
	}
	order, err := s.getOrder(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		log.WarnContext(ctx, "webhook for unknown order", slog.String(logger.KeyOrderID, evt.OrderID))
		return nil
	}
	if err != nil {
		return err
	}
	if order.PaymentIntentID != "" && order.PaymentIntentID != evt.IntentID {
		log.WarnContext(ctx, "webhook intent does not match order", slog.String(logger.KeyOrderID, evt.OrderID))
		return nil
	}

	if evt.Kind == payment.EventFailed {
		log.InfoContext(ctx, "payment failed", slog.String(logger.KeyOrderID, evt.OrderID), slog.String("message", evt.Message))
		return nil
	}

	state := domain.CheckoutStatusPaymentSucceeded
	_, err = s.completePayment(context.WithoutCancel(ctx), order, evt.Reference, &state)
	if errors.Is(err, ErrOrderNotPayable) {
		// Acknowledged; completePayment logged the capture for manual review.
		return nil
	}
	return err
}

// AbandonCheckout cancels a pending order and voids its payment intent.
func (s *CheckoutService) AbandonCheckout(ctx context.Context, orderID uuid.UUID, sessionID, userID string) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, orderID, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return order, nil
	}
	if order.Status != domain.OrderStatusPending {
		return nil, IllegalTransitionError
	}

	cancelled, err := s.repo.CancelPending(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, IllegalTransitionError
	}
	order.Status = domain.OrderStatusCancelled

	if order.PaymentIntentID != "" {
		if err := s.gateway.Cancel(ctx, order.PaymentIntentID); err != nil {
			slog.WarnContext(ctx, "failed to cancel payment intent",
				slog.String(logger.KeyOrderID, order.ID.String()), logger.Err(err))
		}
	}
	slog.InfoContext(ctx, "checkout abandoned", slog.String(logger.KeyOrderID, order.ID.String()))
	return order, nil
}

// completePayment marks the order paid and settles it. Only the caller whose
// update moved the order to paid runs the settlement. A captured payment
// wins over an expiry or abandon that cancelled the order in the meantime.
func (s *CheckoutService) completePayment(ctx context.Context, order *domain.Order, reference string, state *domain.CheckoutStatus) (*domain.Order, error) {
	paidAt := s.now().UTC()
	transitioned, err := s.repo.MarkPaid(ctx, order.ID, reference, paidAt)
	if errors.Is(err, repository.ErrOrderStatusConflict) {
		slog.ErrorContext(ctx, "payment captured for an order that was already settled and cancelled",
			slog.String(logger.KeyOrderID, order.ID.String()), slog.String("reference", reference))
		return nil, ErrOrderNotPayable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if !transitioned {
		*state = domain.CheckoutStatusDone
		return s.getOrder(ctx, order.ID)
	}

	if order.Status == domain.OrderStatusCancelled {
		slog.WarnContext(ctx, "payment captured after cancellation, order reinstated",
			slog.String(logger.KeyOrderID, order.ID.String()), slog.String("reference", reference))
	}
	paid := *order
	paid.Status = domain.OrderStatusPaid
	paid.PaymentReference = reference
	paid.PaidAt = &paidAt

	if err := advance(state, domain.CheckoutStatusSettling); err != nil {
		return nil, err
	}
	s.settler.Settle(ctx, &paid)
	if err := advance(state, domain.CheckoutStatusDone); err != nil {
		return nil, err
	}
	return &paid, nil
}

// findReplay returns the order an earlier submission created under key. A
// cancelled order found under a derived key is not a replay: key moves on to
// its next generation until a free or live one is found.
func (s *CheckoutService) findReplay(ctx context.Context, key *string, derived bool) (*domain.Order, error) {
	base := *key
	for gen := 1; ; gen++ {
		existing, err := s.repo.GetOrderByIdempotencyKey(ctx, *key)
		if errors.Is(err, repository.ErrIdempotencyKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if !derived || existing.Status != domain.OrderStatusCancelled {
			return existing, nil
		}
		*key = fmt.Sprintf("%s-%d", base, gen)
	}
}

// resumeOrder answers a repeated submission with the order that already
// exists, re-opening its payment intent while it is still pending.
func (s *CheckoutService) resumeOrder(ctx context.Context, order *domain.Order) (*PlaceOrderResult, error) {
	res := &PlaceOrderResult{Order: order, Duplicate: true}
	switch order.Status {
	case domain.OrderStatusPending:
		secret, err := s.ensureIntent(ctx, order)
		if err != nil {
			return nil, err
		}
		res.ClientSecret = secret
		res.State = domain.CheckoutStatusPaymentPending
	case domain.OrderStatusCancelled:
		res.State = domain.CheckoutStatusAbandoned
	default:
		res.State = domain.CheckoutStatusDone
	}
	return res, nil
}

// ensureIntent opens the order's payment intent. The provider idempotency
// key is derived from the order id, so repeated calls return the same
// intent. Failure leaves the order pending and is reported as unavailable.
func (s *CheckoutService) ensureIntent(ctx context.Context, order *domain.Order) (string, error) {
	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:         order.Total,
		Currency:       order.Currency,
		OrderID:        order.ID.String(),
		OrderNumber:    order.OrderNumber,
		Email:          order.Email,
		IdempotencyKey: "intent-" + order.ID.String(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create payment intent",
			slog.String(logger.KeyOrderID, order.ID.String()), logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}

	if order.PaymentIntentID != intent.ID {
		if err := s.repo.SetPaymentIntent(ctx, order.ID, intent.ID); err != nil {
			return "", fmt.Errorf("failed to store payment intent: %w", err)
		}
		order.PaymentIntentID = intent.ID
	}
	return intent.ClientSecret, nil
}

func (s *CheckoutService) createOrder(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		if attempt > 0 {
			order.OrderNumber = domain.NewOrderNumber(s.now())
		}
		err = s.repo.CreateOrder(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
	}
	return err
}

func (s *CheckoutService) buildOrder(
	req *PlaceOrderRequest,
	cart *domain.Cart,
	key, country string,
	applied *domain.AppliedCoupon,
	selected domain.ShippingOption,
	totals domain.Totals,
) *domain.Order {
	now := s.now().UTC()
	addr := req.Form.Address()
	addr.Country = country

	order := &domain.Order{
		ID:             uuid.New(),
		OrderNumber:    domain.NewOrderNumber(now),
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		IdempotencyKey: key,
		Email:          strings.TrimSpace(req.Form.Email),
		Shipping:       addr,
		Items:          make([]domain.OrderItem, 0, len(cart.Items)),
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		ShippingMethod: selected.Method,
		ShippingCost:   totals.ShippingCost,
		Total:          totals.Total,
		Currency:       s.cfg.Currency,
		Status:         domain.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if applied != nil {
		order.CouponID = applied.ID
		order.CouponCode = applied.Code
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			ImageURL:    item.ImageURL,
			Size:        item.SelectedSize,
			Color:       item.SelectedColor,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal().Round(2),
		})
	}
	return order
}

// applyCoupon re-validates the coupon against the current subtotal.
func (s *CheckoutService) applyCoupon(ctx context.Context, code, userID string, subtotal decimal.Decimal) (*domain.AppliedCoupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	result, err := s.checkCoupon(ctx, code, userID, subtotal)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &CouponError{Reason: result.Reason, Message: result.Error}
	}
	return &domain.AppliedCoupon{ID: result.CouponID, Code: result.Code, DiscountAmount: result.DiscountAmount}, nil
}

func (s *CheckoutService) checkCoupon(ctx context.Context, code, userID string, total decimal.Decimal) (*domain.CouponResult, error) {
	result, err := retry.Read(ctx, s.cfg.Retry, func(ctx context.Context) (*domain.CouponResult, error) {
		return s.coupons.Validate(ctx, coupon.Request{Code: code, UserID: userID, CartTotal: total})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate coupon: %w", err)
	}
	return result, nil
}

func (s *CheckoutService) quote(ctx context.Context, req shipping.QuoteRequest) ([]domain.ShippingOption, error) {
	options, err := retry.Read(ctx, s.cfg.Retry, func(ctx context.Context) ([]domain.ShippingOption, error) {
		options, err := s.shipping.Quote(ctx, req)
		if errors.Is(err, shipping.ErrInvalidCountry) ||
			errors.Is(err, shipping.ErrInvalidItemCount) ||
			errors.Is(err, shipping.ErrNegativeAmount) {
			return nil, retry.Permanent(err)
		}
		return options, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to quote shipping: %w", err)
	}
	return options, nil
}

func (s *CheckoutService) validateForm(form domain.ShippingForm) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate form: %w", err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &FormError{Missing: missing}
}

func (s *CheckoutService) country(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.cfg.DomesticCountry
	}
	return code
}

func (s *CheckoutService) getOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ownedOrder hides orders of other sessions and users behind not found.
func (s *CheckoutService) ownedOrder(ctx context.Context, id uuid.UUID, sessionID, userID string) (*domain.Order, error) {
	order, err := s.getOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(sessionID, userID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func advance(state *domain.CheckoutStatus, to domain.CheckoutStatus) error {
	if !domain.CanTransitionTo(*state, to) {
		return fmt.Errorf("%w: %s -> %s", IllegalTransitionError, *state, to)
	}
	*state = to
	return nil
}

// deriveIdempotencyKey fingerprints the submission (cart, delivery details,
// coupon and method) so that a double click within the same ten-minute window
// maps to one order.
func deriveIdempotencyKey(req *PlaceOrderRequest, cart *domain.Cart, now time.Time) string {
	h := xxhash.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.WriteString("\x00")
		}
	}
	write(req.SessionID, req.UserID, strings.ToUpper(strings.TrimSpace(req.CouponCode)), req.ShippingMethod)
	form := req.Form
	write(strings.ToLower(strings.TrimSpace(form.Email)), form.FirstName, form.LastName,
		form.AddressLine1, form.AddressLine2, form.City, form.State, form.PostalCode,
		strings.ToUpper(form.Country), form.Phone)
	for _, item := range cart.Items {
		write(item.ProductID, item.SelectedSize, item.SelectedColor, strconv.Itoa(item.Quantity))
	}
	write(strconv.FormatInt(now.Unix()/int64(idempotencyWindow/time.Second), 10))
	return fmt.Sprintf("auto-%016x", h.Sum64())
}
