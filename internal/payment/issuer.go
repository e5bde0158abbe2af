package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/idempotency"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/pricing"
)

// Policy decides what happens when authoritative pricing cannot be fetched.
type Policy string

const (
	// PolicyFailOpen charges the client-submitted prices.
	PolicyFailOpen Policy = "fail-open"
	// PolicyFailClosed rejects the checkout.
	PolicyFailClosed Policy = "fail-closed"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyFailOpen:
		return PolicyFailOpen, nil
	case PolicyFailClosed:
		return PolicyFailClosed, nil
	default:
		return "", fmt.Errorf("unknown pricing policy %q", s)
	}
}

const defaultCurrency = "USD"

type Reconciler interface {
	Reconcile(ctx context.Context, lines []domain.CartLineItem) (*domain.ReconciledOrder, error)
}

// IntentRequest is what the processor needs to create a charge. Amount is in
// minor units.
type IntentRequest struct {
	Amount         int64
	Currency       string
	Email          string
	Shipping       *domain.ShippingInfo
	Metadata       map[string]string
	IdempotencyKey string
}

type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*domain.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error)
}

type CheckoutRequest struct {
	Items          []domain.CartLineItem
	Email          string
	Shipping       *domain.ShippingInfo
	IdempotencyKey string
}

type Config struct {
	Channel string
	Policy  Policy
	Timeout time.Duration
}

type Issuer struct {
	reconciler Reconciler
	processor  Processor
	guard      *idempotency.Guard
	channel    string
	policy     Policy
	timeout    time.Duration
	logger     *slog.Logger
}

func NewIssuer(reconciler Reconciler, processor Processor, guard *idempotency.Guard, cfg Config, logger *slog.Logger) *Issuer {
	if cfg.Policy == "" {
		cfg.Policy = PolicyFailOpen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if guard == nil {
		guard = idempotency.NewGuard(idempotency.NoopStore{}, 0, logger)
	}
	return &Issuer{
		reconciler: reconciler,
		processor:  processor,
		guard:      guard,
		channel:    cfg.Channel,
		policy:     cfg.Policy,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// CreatePaymentIntent validates the request, reconciles prices and creates a
// charge for the reconciled total. A request carrying an idempotency key that
// already produced a receipt gets that receipt back without a new charge; the
// same key with a different cart is ErrIdempotencyConflict.
func (i *Issuer) CreatePaymentIntent(ctx context.Context, req CheckoutRequest) (*domain.CheckoutReceipt, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	receipt, replayed, err := i.guard.Do(ctx, req.IdempotencyKey, Fingerprint(req), func(ctx context.Context) (*domain.CheckoutReceipt, error) {
		return i.issue(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if replayed {
		i.logger.InfoContext(ctx, "replayed checkout", "payment_intent_id", receipt.PaymentIntentID)
	}
	return receipt, nil
}

func (i *Issuer) issue(ctx context.Context, req CheckoutRequest) (*domain.CheckoutReceipt, error) {
	order, err := i.reconciler.Reconcile(ctx, req.Items)
	switch {
	case err == nil:
	case errors.Is(err, pricing.ErrPricingUnavailable) && i.policy == PolicyFailOpen:
		i.logger.WarnContext(ctx, "pricing lookup failed, charging submitted prices", "error", err, "lines", len(req.Items))
		order = pricing.ClientOrder(req.Items)
	case errors.Is(err, pricing.ErrPricingUnavailable):
		i.logger.ErrorContext(ctx, "pricing lookup failed, rejecting checkout", "error", err)
		return nil, err
	default:
		return nil, err
	}

	currency := order.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	amount := domain.ToMinorUnits(order.Total, currency)
	email := buyerEmail(req)

	payCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	intent, err := i.processor.CreateIntent(payCtx, IntentRequest{
		Amount:         amount,
		Currency:       strings.ToLower(currency),
		Email:          email,
		Shipping:       req.Shipping,
		Metadata:       BuildMetadata(order, email, i.channel),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		i.logger.ErrorContext(ctx, "create payment intent failed", "error", err, "amount", amount, "currency", currency)
		return nil, err
	}

	i.logger.InfoContext(ctx, "payment intent created",
		"payment_intent_id", intent.ID,
		"amount", amount,
		"currency", currency,
		"pricing_validated", order.Valid,
		"fallback_lines", order.FallbackLines(),
	)

	return &domain.CheckoutReceipt{
		PaymentIntentID:  intent.ID,
		ClientSecret:     intent.ClientSecret,
		AmountMinor:      amount,
		Currency:         strings.ToUpper(currency),
		PricingValidated: order.Valid,
		FallbackLines:    order.FallbackLines(),
	}, nil
}

// GetStatus returns the processor's current view of an intent.
func (i *Issuer) GetStatus(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalidRequest("payment intent id is required")
	}

	payCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	intent, err := i.processor.GetIntent(payCtx, id)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// Validate rejects requests the processor must never see.
func Validate(req CheckoutRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	for idx, item := range req.Items {
		if strings.TrimSpace(item.VariantID) == "" {
			return invalidRequest("items[%d]: variant id is required", idx)
		}
		if item.Quantity < 1 {
			return invalidRequest("items[%d]: quantity must be at least 1", idx)
		}
		if item.Price.IsNegative() {
			return invalidRequest("items[%d]: price must not be negative", idx)
		}
	}
	if s := req.Shipping; s != nil {
		if strings.TrimSpace(s.Name) == "" {
			return invalidRequest("shipping name is required")
		}
		if strings.TrimSpace(s.Address.Line1) == "" {
			return invalidRequest("shipping address line1 is required")
		}
		if strings.TrimSpace(s.Address.Country) == "" {
			return invalidRequest("shipping address country is required")
		}
	}
	return nil
}

func buyerEmail(req CheckoutRequest) string {
	if req.Email != "" {
		return req.Email
	}
	if req.Shipping != nil {
		return req.Shipping.Email
	}
	return ""
}
