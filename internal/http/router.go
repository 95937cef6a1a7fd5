package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/internal/auth"
	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Carts         CartAPI
	Checkout      CheckoutAPI
	Verifier      *auth.Verifier
	WebhookSecret string
	Timeout       time.Duration
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(cfg.Carts, cfg.Timeout)
	checkoutHandler := NewCheckoutHandler(cfg.Checkout, cfg.Timeout)
	ordersHandler := NewOrdersHandler(cfg.Checkout, cfg.Timeout)
	webhookHandler := NewWebhookHandler(cfg.Checkout, cfg.WebhookSecret)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Ready != nil {
			if err := cfg.Ready(r.Context()); err != nil {
				slog.WarnContext(r.Context(), "readiness check failed", logger.Err(err))
				respondError(w, http.StatusServiceUnavailable, "not_ready", "dependencies unavailable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Signed by the provider, so it sits outside identity checks.
		r.Post("/webhooks/stripe", webhookHandler.Stripe)

		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware(cfg.Verifier))

			r.Route("/cart", func(r chi.Router) {
				r.Use(RequireSession)
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items", cartHandler.UpdateQuantity)
				r.Delete("/items", cartHandler.RemoveItem)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.Timeout))
				r.Post("/stock/check", checkoutHandler.CheckStock)
				r.Post("/shipping/quote", checkoutHandler.QuoteShipping)
				r.Post("/coupons/validate", checkoutHandler.ValidateCoupon)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(RequireSession)
					r.Post("/preview", checkoutHandler.Preview)
					r.Post("/orders", checkoutHandler.PlaceOrder)
				})

				r.Group(func(r chi.Router) {
					r.Use(RequireCaller)
					r.Post("/orders/{id}/confirm", checkoutHandler.ConfirmPayment)
					r.Post("/orders/{id}/abandon", checkoutHandler.Abandon)
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(RequireCaller)
				r.Get("/", ordersHandler.ListOrders)
				r.Get("/{id}", ordersHandler.GetOrder)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/orders", ordersHandler.AdminListOrders)
				r.Patch("/orders/{id}/status", ordersHandler.AdminUpdateStatus)
				r.Put("/products/{id}/stock", ordersHandler.AdminSetStock)
			})
		})
	})

	return otelhttp.NewHandler(r, "emporium")
}
