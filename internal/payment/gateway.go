package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnavailable    = errors.New("payment gateway unavailable")
	ErrIntentNotFound = errors.New("payment intent not found")
)

// DeclineError is a card-level rejection. The order stays payable and the
// customer may retry with another payment method.
type DeclineError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *DeclineError) Error() string {
	if e.DeclineCode != "" {
		return fmt.Sprintf("payment declined (%s): %s", e.DeclineCode, e.Message)
	}
	return fmt.Sprintf("payment declined: %s", e.Message)
}

// ActionRequiredError means the customer must complete an authentication
// step (3-D Secure) on the client using the intent's client secret.
type ActionRequiredError struct {
	ClientSecret string
}

func (e *ActionRequiredError) Error() string {
	return "payment requires additional customer action"
}

type IntentRequest struct {
	Amount         decimal.Decimal
	Currency       string
	OrderID        string
	OrderNumber    string
	Email          string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

type ConfirmRequest struct {
	IntentID        string
	PaymentMethodID string
	IdempotencyKey  string
}

type Confirmation struct {
	IntentID  string
	Reference string
}

// Gateway is the payment provider boundary used by checkout.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
	Cancel(ctx context.Context, intentID string) error
}

// MinorUnits converts an amount to the integer minor unit the provider bills
// in (cents for usd).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
