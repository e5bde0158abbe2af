package main

import (
	"encoding/json"
	"fmt"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/cart"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
)

// attempt is the client-side record of one checkout attempt.
type attempt struct {
	Status          domain.CheckoutStatus `json:"status"`
	Token           string                `json:"token,omitempty"`
	PaymentIntentID string                `json:"paymentIntentId,omitempty"`
	ClientSecret    string                `json:"clientSecret,omitempty"`
	Amount          float64               `json:"amount,omitempty"`
	Currency        string                `json:"currency,omitempty"`
}

func newAttempt() *attempt {
	return &attempt{Status: domain.CheckoutStatusShippingEntry}
}

// advance moves the attempt to next. A terminal outcome reported while the
// intent was never marked submitted passes through payment-submitted, since
// submission happens inside the processor's own payment form.
func (a *attempt) advance(next domain.CheckoutStatus) error {
	if a.Status == next {
		return nil
	}
	if next.IsTerminal() && a.Status == domain.CheckoutStatusPaymentIntentCreated {
		a.Status = domain.CheckoutStatusPaymentSubmitted
	}
	if !domain.CanTransitionTo(a.Status, next) {
		return fmt.Errorf("illegal checkout transition %s -> %s", a.Status, next)
	}
	a.Status = next
	return nil
}

// restart abandons any in-flight intent and returns to shipping entry.
func (a *attempt) restart() {
	if a.Status.IsTerminal() || a.Status == "" {
		*a = *newAttempt()
		return
	}
	if a.Status != domain.CheckoutStatusShippingEntry {
		_ = a.advance(domain.CheckoutStatusShippingEntry)
	}
	a.Token, a.PaymentIntentID, a.ClientSecret = "", "", ""
	a.Amount, a.Currency = 0, ""
}

func loadAttempt(storage cart.Storage) (*attempt, error) {
	data, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load checkout state: %w", err)
	}
	if len(data) == 0 {
		return newAttempt(), nil
	}
	var a attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse checkout state: %w", err)
	}
	if a.Status == "" {
		a.Status = domain.CheckoutStatusShippingEntry
	}
	return &a, nil
}

func saveAttempt(storage cart.Storage, a *attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode checkout state: %w", err)
	}
	return storage.Save(data)
}
