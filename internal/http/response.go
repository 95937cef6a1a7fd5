package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/cartstore"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/inventory"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/service"
	"github.com/BryanViews002/style-yard-emporium-sub000/internal/shipping"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
)

const maxRequestBodySize = 1 << 20 // 1MB

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// StockErrorResponse is returned when checkout is blocked on availability.
type StockErrorResponse struct {
	ErrorResponse
	Issues []domain.StockIssue `json:"issues"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", logger.Err(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// handleServiceError converts service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		formErr    *service.FormError
		couponErr  *service.CouponError
		stockErr   *service.StockError
		paymentErr *service.PaymentError
	)

	switch {
	case errors.As(err, &formErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: formErr.Error(), Code: "invalid_form", Details: strings.Join(formErr.Missing, ","),
		})
	case errors.As(err, &couponErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: couponErr.Message, Code: "invalid_coupon", Details: string(couponErr.Reason),
		})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, StockErrorResponse{
			ErrorResponse: ErrorResponse{Error: stockErr.Error(), Code: "insufficient_stock"},
			Issues:        stockErr.Issues,
		})
	case errors.As(err, &paymentErr):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error: paymentErr.Error(), Code: "payment_declined", Details: paymentErr.DeclineCode,
		})
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, inventory.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, shipping.ErrInvalidCountry),
		errors.Is(err, shipping.ErrInvalidItemCount),
		errors.Is(err, shipping.ErrNegativeAmount):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, service.ErrShippingMethodUnavailable):
		respondError(w, http.StatusUnprocessableEntity, "shipping_unavailable", err.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	case errors.Is(err, service.ErrProductUnavailable), errors.Is(err, inventory.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrOrderNotPayable), errors.Is(err, service.IllegalTransitionError):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, cartstore.ErrVersionConflict):
		respondError(w, http.StatusConflict, "conflict", "cart was modified concurrently, please retry")
	case errors.Is(err, service.ErrPaymentUnavailable):
		respondError(w, http.StatusServiceUnavailable, "payment_unavailable", service.ErrPaymentUnavailable.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.String(logger.KeyRequestID, getRequestID(r.Context())), logger.Err(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
