package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/auth"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/payment"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/service"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CheckoutAPI interface {
	CheckStock(ctx context.Context, requests []domain.StockRequest) (*domain.StockResult, error)
	ValidateCoupon(ctx context.Context, req *service.CouponRequest) (*domain.CouponResult, error)
	QuoteShipping(ctx context.Context, req shipping.QuoteRequest) (*service.ShippingQuote, error)
	PreviewTotals(ctx context.Context, req *service.PreviewRequest) (*service.Preview, error)
	PlaceOrder(ctx context.Context, req *service.PlaceOrderRequest) (*service.PlaceOrderResult, error)
	ConfirmPayment(ctx context.Context, req *service.ConfirmRequest) (*service.ConfirmResult, error)
	AbandonCheckout(ctx context.Context, orderID uuid.UUID, sessionID, userID string) (*domain.Order, error)
	HandleWebhook(ctx context.Context, evt *payment.WebhookEvent) error
	GetOrder(ctx context.Context, id uuid.UUID, sessionID, userID string) (*domain.Order, error)
	ListOrders(ctx context.Context, sessionID, userID string) ([]*domain.Order, error)
	AdminListOrders(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)
	AdminUpdateStatus(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error)
	AdminSetStock(ctx context.Context, productID string, quantity int) error
}

type CheckoutHandler struct {
	checkout CheckoutAPI
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutAPI, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type StockCheckRequestDTO struct {
	Items []domain.StockRequest `json:"items"`
}

type CouponRequestDTO struct {
	Code      string           `json:"code"`
	CartTotal *decimal.Decimal `json:"cart_total,omitempty"`
}

type ShippingQuoteRequestDTO struct {
	CountryCode string          `json:"country_code"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	ItemCount   int             `json:"item_count"`
}

type PreviewRequestDTO struct {
	CouponCode     string `json:"coupon_code,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	ShippingMethod string `json:"shipping_method,omitempty"`
}

type PlaceOrderRequestDTO struct {
	Shipping       domain.ShippingForm `json:"shipping"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	ShippingMethod string              `json:"shipping_method,omitempty"`
}

type CheckoutResponseDTO struct {
	State        domain.CheckoutStatus `json:"state"`
	Order        *domain.Order         `json:"order,omitempty"`
	ClientSecret string                `json:"client_secret,omitempty"`
	Duplicate    bool                  `json:"duplicate,omitempty"`
}

type ConfirmRequestDTO struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (h *CheckoutHandler) CheckStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StockCheckRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "items must not be empty")
		return
	}

	result, err := h.checkout.CheckStock(ctx, req.Items)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *CheckoutHandler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CouponRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}

	id := auth.FromContext(ctx)
	result, err := h.checkout.ValidateCoupon(ctx, &service.CouponRequest{
		SessionID: id.SessionID,
		UserID:    id.UserID,
		Code:      req.Code,
		CartTotal: req.CartTotal,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *CheckoutHandler) QuoteShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ShippingQuoteRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := h.checkout.QuoteShipping(ctx, shipping.QuoteRequest{
		CountryCode: req.CountryCode,
		OrderAmount: req.OrderAmount,
		ItemCount:   req.ItemCount,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (h *CheckoutHandler) Preview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PreviewRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	id := auth.FromContext(ctx)
	preview, err := h.checkout.PreviewTotals(ctx, &service.PreviewRequest{
		SessionID:      id.SessionID,
		UserID:         id.UserID,
		CouponCode:     req.CouponCode,
		CountryCode:    req.CountryCode,
		ShippingMethod: req.ShippingMethod,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// PlaceOrder creates the order and its payment intent. Clients should send
// an Idempotency-Key header; without one a key is derived from the cart.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	id := auth.FromContext(ctx)
	res, err := h.checkout.PlaceOrder(ctx, &service.PlaceOrderRequest{
		SessionID:      id.SessionID,
		UserID:         id.UserID,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		Form:           req.Shipping,
		CouponCode:     req.CouponCode,
		ShippingMethod: req.ShippingMethod,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	respondJSON(w, status, CheckoutResponseDTO{
		State:        res.State,
		Order:        res.Order,
		ClientSecret: res.ClientSecret,
		Duplicate:    res.Duplicate,
	})
}

func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req ConfirmRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentMethodID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "payment_method_id is required")
		return
	}

	// Not bounded by the handler timeout: a submitted charge runs to completion.
	id := auth.FromContext(r.Context())
	res, err := h.checkout.ConfirmPayment(r.Context(), &service.ConfirmRequest{
		OrderID:         orderID,
		PaymentMethodID: req.PaymentMethodID,
		SessionID:       id.SessionID,
		UserID:          id.UserID,
	})
	if errors.Is(err, service.ErrActionRequired) && res != nil {
		respondJSON(w, http.StatusPaymentRequired, CheckoutResponseDTO{
			State:        res.State,
			Order:        res.Order,
			ClientSecret: res.ClientSecret,
		})
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{State: res.State, Order: res.Order})
}

func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	id := auth.FromContext(ctx)
	order, err := h.checkout.AbandonCheckout(ctx, orderID, id.SessionID, id.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{State: domain.CheckoutStatusAbandoned, Order: order})
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order id must be a UUID")
		return uuid.Nil, false
	}
	return orderID, true
}
