package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/BryanViews002/style-yard-emporium-sub000/pkg/circuitbreaker"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// intentAPI is the subset of the Stripe PaymentIntents client in use.
type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type StripeGateway struct {
	intents intentAPI
	breaker *circuitbreaker.Breaker
}

func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return newStripeGateway(sc.PaymentIntents), nil
}

func newStripeGateway(intents intentAPI) *StripeGateway {
	return &StripeGateway{
		intents: intents,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("stripe"), isGatewayHealthy),
	}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(req.Amount)),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Description: stripe.String("Order " + req.OrderNumber),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("order_number", req.OrderNumber)
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.Context = ctx

	pi, err := circuitbreaker.Execute(g.breaker, func() (*stripe.PaymentIntent, error) {
		return g.intents.New(params)
	})
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: string(pi.Status)}, nil
}

func (g *StripeGateway) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(req.PaymentMethodID),
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.Context = ctx

	pi, err := circuitbreaker.Execute(g.breaker, func() (*stripe.PaymentIntent, error) {
		return g.intents.Confirm(req.IntentID, params)
	})
	if err != nil {
		return nil, mapStripeError(err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		ref := pi.ID
		if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
			ref = pi.LatestCharge.ID
		}
		return &Confirmation{IntentID: pi.ID, Reference: ref}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		return nil, &ActionRequiredError{ClientSecret: pi.ClientSecret}
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		msg := "payment method was not accepted"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			msg = pi.LastPaymentError.Msg
		}
		return nil, &DeclineError{Message: msg}
	default:
		return nil, fmt.Errorf("%w: unexpected intent status %s", ErrUnavailable, pi.Status)
	}
}

func (g *StripeGateway) Cancel(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	_, err := circuitbreaker.Execute(g.breaker, func() (*stripe.PaymentIntent, error) {
		return g.intents.Cancel(intentID, params)
	})
	if err != nil {
		return mapStripeError(err)
	}
	return nil
}

// mapStripeError turns provider errors into the package's error types.
func mapStripeError(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	switch {
	case se.Type == stripe.ErrorTypeCard:
		return &DeclineError{Code: string(se.Code), DeclineCode: string(se.DeclineCode), Message: se.Msg}
	case se.Code == stripe.ErrorCodeResourceMissing:
		return ErrIntentNotFound
	case se.Type == stripe.ErrorTypeInvalidRequest:
		return fmt.Errorf("payment request rejected: %s", se.Msg)
	default:
		return fmt.Errorf("%w: %s", ErrUnavailable, se.Msg)
	}
}

// isGatewayHealthy keeps card declines and request errors from tripping the
// breaker; only transport and provider-side failures count.
func isGatewayHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest
	}
	return false
}
