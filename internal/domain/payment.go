package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentIntent is the backend's transient reference to a charge owned by the
// payment processor. Amount is in minor currency units.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
	Status       string
	Metadata     map[string]string
}

// CheckoutEvent is published when the processor reports a terminal outcome for an intent.
type CheckoutEvent struct {
	ID         string         `json:"id"`
	IntentID   string         `json:"intent_id"`
	Status     CheckoutStatus `json:"status"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	Email      string         `json:"email,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// CheckoutReceipt is the outcome of a successful checkout attempt. It is what
// gets replayed when the same idempotency token is submitted again.
type CheckoutReceipt struct {
	PaymentIntentID  string `json:"payment_intent_id"`
	ClientSecret     string `json:"client_secret"`
	AmountMinor      int64  `json:"amount_minor"`
	Currency         string `json:"currency"`
	PricingValidated bool   `json:"pricing_validated"`
	FallbackLines    int    `json:"fallback_lines"`
}

// Amount is the charged total in major currency units.
func (r CheckoutReceipt) Amount() decimal.Decimal {
	return FromMinorUnits(r.AmountMinor, r.Currency)
}
