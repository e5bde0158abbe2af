package stripepay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event types that end a checkout attempt.
var terminalEvents = map[string]domain.CheckoutStatus{
	"payment_intent.succeeded":      domain.CheckoutStatusSucceeded,
	"payment_intent.payment_failed": domain.CheckoutStatusFailed,
	"payment_intent.canceled":       domain.CheckoutStatusFailed,
}

type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// CheckoutEvent verifies the payload against its signature header and turns
// it into a checkout event. Event types that do not end a checkout yield nil
// without an error.
func (v *WebhookVerifier) CheckoutEvent(payload []byte, signature string) (*domain.CheckoutEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	status, ok := terminalEvents[string(event.Type)]
	if !ok {
		return nil, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent from event %s: %w", event.ID, err)
	}

	return &domain.CheckoutEvent{
		ID:         event.ID,
		IntentID:   pi.ID,
		Status:     status,
		Amount:     pi.Amount,
		Currency:   string(pi.Currency),
		Email:      pi.Metadata[payment.MetaEmail],
		Channel:    pi.Metadata[payment.MetaChannel],
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}, nil
}
