package domain

type CheckoutStatus string

const (
	CheckoutStatusShippingEntry        CheckoutStatus = "shipping-entry"
	CheckoutStatusPaymentIntentCreated CheckoutStatus = "payment-intent-created"
	CheckoutStatusPaymentSubmitted     CheckoutStatus = "payment-submitted"
	CheckoutStatusSucceeded            CheckoutStatus = "succeeded"
	CheckoutStatusFailed               CheckoutStatus = "failed"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusShippingEntry:        {CheckoutStatusPaymentIntentCreated},
	CheckoutStatusPaymentIntentCreated: {CheckoutStatusPaymentSubmitted, CheckoutStatusShippingEntry},
	// editing shipping abandons the in-flight intent
	CheckoutStatusPaymentSubmitted: {CheckoutStatusSucceeded, CheckoutStatusFailed, CheckoutStatusShippingEntry},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSucceeded || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckoutStatusFromIntent maps a payment processor intent status onto the
// checkout state machine.
func CheckoutStatusFromIntent(status string) CheckoutStatus {
	switch status {
	case "succeeded":
		return CheckoutStatusSucceeded
	case "canceled", "payment_failed":
		return CheckoutStatusFailed
	case "processing", "requires_action", "requires_capture":
		return CheckoutStatusPaymentSubmitted
	default:
		return CheckoutStatusPaymentIntentCreated
	}
}
