package payment

import (
	"errors"
	"fmt"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/idempotency"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/pricing"
)

var (
	ErrEmptyCart          = pricing.ErrEmptyCart
	ErrPricingUnavailable = pricing.ErrPricingUnavailable
	ErrInvalidRequest     = errors.New("invalid checkout request")
	ErrIntentNotFound     = errors.New("payment intent not found")

	// ErrIdempotencyConflict is returned when a checkout token already paid
	// for a different cart.
	ErrIdempotencyConflict = idempotency.ErrConflict
)

// ProcessorError is a failure reported by the payment processor. Message is
// the processor's own wording and is shown to the shopper unchanged.
type ProcessorError struct {
	Message    string
	StatusCode int
	Code       string
}

func (e *ProcessorError) Error() string {
	return e.Message
}

// Declined reports whether the processor rejected the request itself rather
// than failing to handle it.
func (e *ProcessorError) Declined() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
