package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
)

var (
	ErrEmptyCart                 = errors.New("cart is empty, nothing to checkout")
	ErrProductUnavailable        = errors.New("product is not available")
	ErrShippingMethodUnavailable = errors.New("shipping method is no longer available for this destination")
	ErrPaymentUnavailable        = errors.New("payment service unavailable, please try again")
	ErrActionRequired            = errors.New("payment requires additional authentication")
	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderNotPayable           = errors.New("order can no longer be paid")
	IllegalTransitionError       = errors.New("illegal transition of checkout status")
)

// FormError lists the shipping form fields that are missing.
type FormError struct {
	Missing []string
}

func (e *FormError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// CouponError carries the validator's rejection reason verbatim.
type CouponError struct {
	Reason  domain.CouponRejection
	Message string
}

func (e *CouponError) Error() string {
	return e.Message
}

type StockError struct {
	Issues []domain.StockIssue
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
			issue.ProductName, issue.Requested, issue.Available))
	}
	return strings.Join(parts, "; ")
}

// PaymentError is a decline reported by the payment provider. The order
// stays pending and the customer may retry.
type PaymentError struct {
	Code        string
	DeclineCode string
	Message     string
}

func (e *PaymentError) Error() string {
	if e.Message == "" {
		return "payment declined"
	}
	return e.Message
}
