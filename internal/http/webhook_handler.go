package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/BryanViews002/style-yard-emporium-sub000/internal/payment"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
)

const maxWebhookBodySize = 64 << 10

type WebhookHandler struct {
	checkout CheckoutAPI
	secret   string
}

func NewWebhookHandler(checkout CheckoutAPI, secret string) *WebhookHandler {
	return &WebhookHandler{
		checkout: checkout,
		secret:   secret,
	}
}

// Stripe verifies the signature and applies payment intent outcomes. Any
// non-2xx answer makes the provider redeliver the event.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		respondError(w, http.StatusServiceUnavailable, "webhooks_disabled", "webhook secret is not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "payload too large")
		return
	}

	evt, err := payment.ParseWebhook(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if errors.Is(err, payment.ErrInvalidSignature) {
		slog.WarnContext(r.Context(), "rejected webhook", logger.Err(err))
		respondError(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "malformed event")
		return
	}

	if err := h.checkout.HandleWebhook(r.Context(), evt); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
