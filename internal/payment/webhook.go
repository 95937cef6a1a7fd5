package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type EventKind string

const (
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventIgnored   EventKind = "ignored"
)

// WebhookEvent is the part of a provider event that checkout acts on.
type WebhookEvent struct {
	ID        string
	Kind      EventKind
	IntentID  string
	OrderID   string
	Reference string
	Message   string
}

// ParseWebhook verifies the signature and extracts the payment intent
// outcome.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Kind: EventIgnored}
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		out.Kind = EventSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		out.Kind = EventFailed
	default:
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	out.IntentID = pi.ID
	out.OrderID = pi.Metadata["order_id"]
	out.Reference = pi.ID
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		out.Reference = pi.LatestCharge.ID
	}
	if pi.LastPaymentError != nil {
		out.Message = pi.LastPaymentError.Msg
	}
	return out, nil
}
