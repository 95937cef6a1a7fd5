package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/auth"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	orders  CheckoutAPI
	timeout time.Duration
}

func NewOrdersHandler(orders CheckoutAPI, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrdersResponseDTO struct {
	Orders []*domain.Order `json:"orders"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

type SetStockRequestDTO struct {
	Quantity *int `json:"quantity"`
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.FromContext(ctx)
	orders, err := h.orders.ListOrders(ctx, id.SessionID, id.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, OrdersResponseDTO{Orders: nonNil(orders)})
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	id := auth.FromContext(ctx)
	order, err := h.orders.GetOrder(ctx, orderID, id.SessionID, id.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// AdminListOrders supports ?status=&limit=&offset=.
func (h *OrdersHandler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "limit must be a number")
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "offset must be a number")
		return
	}

	orders, err := h.orders.AdminListOrders(ctx, domain.OrderStatus(q.Get("status")), limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, OrdersResponseDTO{Orders: nonNil(orders)})
}

func (h *OrdersHandler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.orders.AdminUpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) AdminSetStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "id")
	var req SetStockRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil || *req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be zero or more")
		return
	}

	if err := h.orders.AdminSetStock(ctx, productID, *req.Quantity); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func nonNil(orders []*domain.Order) []*domain.Order {
	if orders == nil {
		return []*domain.Order{}
	}
	return orders
}
