package domain

type CheckoutStatus string

const (
	CheckoutStatusFormIncomplete    CheckoutStatus = "FORM_INCOMPLETE"
	CheckoutStatusFormValid         CheckoutStatus = "FORM_VALID"
	CheckoutStatusStockChecking     CheckoutStatus = "STOCK_CHECKING"
	CheckoutStatusStockOK           CheckoutStatus = "STOCK_OK"
	CheckoutStatusStockInsufficient CheckoutStatus = "STOCK_INSUFFICIENT"
	CheckoutStatusOrderCreating     CheckoutStatus = "ORDER_CREATING"
	CheckoutStatusOrderCreated      CheckoutStatus = "ORDER_CREATED"
	CheckoutStatusPaymentPending    CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusPaymentFailed     CheckoutStatus = "PAYMENT_FAILED"
	CheckoutStatusPaymentSucceeded  CheckoutStatus = "PAYMENT_SUCCEEDED"
	CheckoutStatusSettling          CheckoutStatus = "SETTLING"
	CheckoutStatusDone              CheckoutStatus = "DONE"
	CheckoutStatusAbandoned         CheckoutStatus = "ABANDONED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusFormIncomplete:    {CheckoutStatusFormValid},
	CheckoutStatusFormValid:         {CheckoutStatusFormIncomplete, CheckoutStatusStockChecking},
	CheckoutStatusStockChecking:     {CheckoutStatusStockOK, CheckoutStatusStockInsufficient},
	CheckoutStatusStockInsufficient: {CheckoutStatusFormValid},
	CheckoutStatusStockOK:           {CheckoutStatusOrderCreating},
	CheckoutStatusOrderCreating:     {CheckoutStatusOrderCreated, CheckoutStatusFormValid},
	CheckoutStatusOrderCreated:      {CheckoutStatusPaymentPending},
	CheckoutStatusPaymentPending:    {CheckoutStatusPaymentSucceeded, CheckoutStatusPaymentFailed},
	CheckoutStatusPaymentFailed:     {CheckoutStatusPaymentPending},
	CheckoutStatusPaymentSucceeded:  {CheckoutStatusSettling, CheckoutStatusDone},
	CheckoutStatusSettling:          {CheckoutStatusDone},
}

// CanTransitionTo reports whether a checkout attempt may move from one state
// to the next. Any non-terminal state may be abandoned.
func CanTransitionTo(from, to CheckoutStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == CheckoutStatusAbandoned {
		return true
	}
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusDone || s == CheckoutStatusAbandoned
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
