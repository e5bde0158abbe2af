package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/idempotency"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/pricing"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pricerMock struct {
	prices map[string]domain.AuthoritativePrice
	err    error
}

func (m *pricerMock) VariantPrices(_ context.Context, _ string, _ []string) (map[string]domain.AuthoritativePrice, error) {
	return m.prices, m.err
}

type processorMock struct {
	requests    []IntentRequest
	hadDeadline bool
	err         error
	intent      *domain.PaymentIntent
}

func (m *processorMock) CreateIntent(ctx context.Context, req IntentRequest) (*domain.PaymentIntent, error) {
	m.requests = append(m.requests, req)
	_, m.hadDeadline = ctx.Deadline()
	if m.err != nil {
		return nil, m.err
	}
	n := len(m.requests)
	return &domain.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       "requires_payment_method",
		Metadata:     req.Metadata,
	}, nil
}

func (m *processorMock) GetIntent(_ context.Context, id string) (*domain.PaymentIntent, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.intent == nil || m.intent.ID != id {
		return nil, ErrIntentNotFound
	}
	return m.intent, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(variant string, qty int, price string) domain.CartLineItem {
	return domain.CartLineItem{
		ID:          domain.LineID("prod-"+variant, variant),
		ProductID:   "prod-" + variant,
		ProductName: "Item " + variant,
		VariantID:   variant,
		Price:       dec(price),
		Currency:    "USD",
		Quantity:    qty,
	}
}

func scenarioCart() []domain.CartLineItem {
	return []domain.CartLineItem{item("A", 2, "10.00"), item("B", 1, "5.00")}
}

func newIssuer(pricer *pricerMock, processor *processorMock, policy Policy) *Issuer {
	reconciler := pricing.NewReconciler(pricer, "the-dude-abides-shop", discardLogger())
	return NewIssuer(reconciler, processor, nil, Config{
		Channel: "the-dude-abides-shop",
		Policy:  policy,
		Timeout: time.Second,
	}, discardLogger())
}

func TestCreatePaymentIntent_ChargesReconciledTotal(t *testing.T) {
	pricer := &pricerMock{prices: map[string]domain.AuthoritativePrice{
		"A": {VariantID: "A", Amount: dec("12.00"), Currency: "USD"},
	}}
	processor := &processorMock{}
	issuer := newIssuer(pricer, processor, PolicyFailOpen)

	receipt, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{
		Items:          scenarioCart(),
		Email:          "dude@example.com",
		IdempotencyKey: "attempt-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2900), receipt.AmountMinor)
	assert.True(t, dec("29.00").Equal(receipt.Amount()))
	assert.Equal(t, "USD", receipt.Currency)
	assert.True(t, receipt.PricingValidated)
	assert.Equal(t, 1, receipt.FallbackLines)
	assert.Equal(t, "pi_1", receipt.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", receipt.ClientSecret)

	require.Len(t, processor.requests, 1)
	req := processor.requests[0]
	assert.Equal(t, int64(2900), req.Amount)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "attempt-1", req.IdempotencyKey)
	assert.True(t, processor.hadDeadline)

	assert.Equal(t, "dude@example.com", req.Metadata[MetaEmail])
	assert.Equal(t, "the-dude-abides-shop", req.Metadata[MetaChannel])
	assert.Equal(t, "true", req.Metadata[MetaPricingValidated])
	assert.Equal(t, "1", req.Metadata[MetaFallbackLines])
	assert.JSONEq(t, `[{"v":"A","n":"Item A","q":2,"p":"12.00"},{"v":"B","n":"Item B","q":1,"p":"5.00"}]`, req.Metadata[MetaItems])
	assert.NotContains(t, req.Metadata, MetaItemsTruncated)
}

func TestCreatePaymentIntent_FailOpenChargesSubmittedPrices(t *testing.T) {
	pricer := &pricerMock{err: errors.New("dial tcp: i/o timeout")}
	processor := &processorMock{}
	issuer := newIssuer(pricer, processor, PolicyFailOpen)

	receipt, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: scenarioCart()})

	require.NoError(t, err)
	assert.Equal(t, int64(2500), receipt.AmountMinor)
	assert.False(t, receipt.PricingValidated)
	assert.Equal(t, 2, receipt.FallbackLines)
	require.Len(t, processor.requests, 1)
	assert.Equal(t, "false", processor.requests[0].Metadata[MetaPricingValidated])
}

func TestCreatePaymentIntent_FailClosedRejects(t *testing.T) {
	pricer := &pricerMock{err: errors.New("503 from catalog")}
	processor := &processorMock{}
	issuer := newIssuer(pricer, processor, PolicyFailClosed)

	_, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: scenarioCart()})

	assert.ErrorIs(t, err, ErrPricingUnavailable)
	assert.Empty(t, processor.requests)
}

func TestCreatePaymentIntent_EmptyCartNeverReachesProcessor(t *testing.T) {
	processor := &processorMock{}
	issuer := newIssuer(&pricerMock{}, processor, PolicyFailOpen)

	_, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: []domain.CartLineItem{}})

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, processor.requests)
}

func TestValidate(t *testing.T) {
	valid := item("A", 1, "1.00")
	shipping := func(mutate func(*domain.ShippingInfo)) *domain.ShippingInfo {
		s := &domain.ShippingInfo{
			Name:    "Jeffrey Lebowski",
			Address: domain.Address{Line1: "606 Venezia Ave", City: "Venice", State: "CA", PostalCode: "90291", Country: "US"},
		}
		mutate(s)
		return s
	}

	tests := []struct {
		name    string
		req     CheckoutRequest
		wantErr error
		wantMsg string
	}{
		{"valid without shipping", CheckoutRequest{Items: []domain.CartLineItem{valid}}, nil, ""},
		{"valid with shipping", CheckoutRequest{Items: []domain.CartLineItem{valid}, Shipping: shipping(func(*domain.ShippingInfo) {})}, nil, ""},
		{"nil items", CheckoutRequest{}, ErrEmptyCart, ""},
		{"missing variant", CheckoutRequest{Items: []domain.CartLineItem{item("", 1, "1")}}, ErrInvalidRequest, "items[0]: variant id"},
		{"zero quantity", CheckoutRequest{Items: []domain.CartLineItem{valid, item("B", 0, "1")}}, ErrInvalidRequest, "items[1]: quantity"},
		{"negative price", CheckoutRequest{Items: []domain.CartLineItem{item("A", 1, "-0.01")}}, ErrInvalidRequest, "price must not be negative"},
		{"shipping without name", CheckoutRequest{Items: []domain.CartLineItem{valid}, Shipping: shipping(func(s *domain.ShippingInfo) { s.Name = " " })}, ErrInvalidRequest, "shipping name"},
		{"shipping without line1", CheckoutRequest{Items: []domain.CartLineItem{valid}, Shipping: shipping(func(s *domain.ShippingInfo) { s.Address.Line1 = "" })}, ErrInvalidRequest, "line1"},
		{"shipping without country", CheckoutRequest{Items: []domain.CartLineItem{valid}, Shipping: shipping(func(s *domain.ShippingInfo) { s.Address.Country = "" })}, ErrInvalidRequest, "country"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCreatePaymentIntent_InvalidLineNeverReachesProcessor(t *testing.T) {
	processor := &processorMock{}
	issuer := newIssuer(&pricerMock{}, processor, PolicyFailOpen)

	_, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: []domain.CartLineItem{item("A", -1, "3")}})

	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, processor.requests)
}

func TestCreatePaymentIntent_ProcessorErrorSurfacesVerbatim(t *testing.T) {
	processor := &processorMock{err: &ProcessorError{Message: "Amount must be at least $0.50 usd", StatusCode: 400, Code: "amount_too_small"}}
	issuer := newIssuer(&pricerMock{prices: map[string]domain.AuthoritativePrice{}}, processor, PolicyFailOpen)

	_, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: []domain.CartLineItem{item("A", 1, "0.10")}})

	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "Amount must be at least $0.50 usd", err.Error())
	assert.True(t, procErr.Declined())
}

func TestCreatePaymentIntent_ZeroDecimalCurrency(t *testing.T) {
	pricer := &pricerMock{prices: map[string]domain.AuthoritativePrice{
		"A": {VariantID: "A", Amount: dec("1500"), Currency: "JPY"},
	}}
	processor := &processorMock{}
	issuer := newIssuer(pricer, processor, PolicyFailOpen)

	receipt, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: []domain.CartLineItem{item("A", 2, "1")}})

	require.NoError(t, err)
	assert.Equal(t, int64(3000), receipt.AmountMinor)
	assert.Equal(t, "jpy", processor.requests[0].Currency)
	assert.JSONEq(t, `[{"v":"A","n":"Item A","q":2,"p":"1500"}]`, processor.requests[0].Metadata[MetaItems])
}

func TestCreatePaymentIntent_RoundsToNearestMinorUnit(t *testing.T) {
	pricer := &pricerMock{prices: map[string]domain.AuthoritativePrice{
		"A": {VariantID: "A", Amount: dec("19.999"), Currency: "USD"},
	}}
	processor := &processorMock{}
	issuer := newIssuer(pricer, processor, PolicyFailOpen)

	receipt, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: []domain.CartLineItem{item("A", 1, "19.99")}})

	require.NoError(t, err)
	assert.Equal(t, int64(2000), receipt.AmountMinor)
}

func TestCreatePaymentIntent_ReplaysSameIdempotencyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	processor := &processorMock{}
	reconciler := pricing.NewReconciler(&pricerMock{prices: map[string]domain.AuthoritativePrice{}}, "ch", discardLogger())
	guard := idempotency.NewGuard(idempotency.NewRedisStore(client, time.Hour), time.Second, discardLogger())
	issuer := NewIssuer(reconciler, processor, guard, Config{Channel: "ch"}, discardLogger())

	req := CheckoutRequest{Items: scenarioCart(), IdempotencyKey: "double-click"}
	first, err := issuer.CreatePaymentIntent(context.Background(), req)
	require.NoError(t, err)
	second, err := issuer.CreatePaymentIntent(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, processor.requests, 1)
	assert.Equal(t, first, second)

	other, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{Items: scenarioCart(), IdempotencyKey: "new-attempt"})
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentIntentID, other.PaymentIntentID)
	assert.Len(t, processor.requests, 2)
}

func TestCreatePaymentIntent_SameKeyDifferentCartConflicts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	processor := &processorMock{}
	prices := map[string]domain.AuthoritativePrice{"A": {VariantID: "A", Amount: dec("1.00"), Currency: "USD"}}
	reconciler := pricing.NewReconciler(&pricerMock{prices: prices}, "ch", discardLogger())
	guard := idempotency.NewGuard(idempotency.NewRedisStore(client, time.Hour), time.Second, discardLogger())
	issuer := NewIssuer(reconciler, processor, guard, Config{Channel: "ch"}, discardLogger())

	first, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{
		Items:          []domain.CartLineItem{item("A", 1, "1.00")},
		IdempotencyKey: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.AmountMinor)

	second, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{
		Items:          []domain.CartLineItem{item("A", 50, "1.00")},
		IdempotencyKey: "tok",
	})

	assert.ErrorIs(t, err, ErrIdempotencyConflict)
	assert.Nil(t, second)
	assert.Len(t, processor.requests, 1)
}

func TestFingerprint(t *testing.T) {
	base := CheckoutRequest{Items: scenarioCart(), Email: "dude@example.com"}

	tests := []struct {
		name   string
		mutate func(*CheckoutRequest)
		same   bool
	}{
		{name: "identical", mutate: func(*CheckoutRequest) {}, same: true},
		{name: "line order", mutate: func(r *CheckoutRequest) {
			r.Items = []domain.CartLineItem{r.Items[1], r.Items[0]}
		}, same: true},
		{name: "price formatting", mutate: func(r *CheckoutRequest) { r.Items[0].Price = dec("10") }, same: true},
		{name: "email case", mutate: func(r *CheckoutRequest) { r.Email = "Dude@Example.com" }, same: true},
		{name: "token ignored", mutate: func(r *CheckoutRequest) { r.IdempotencyKey = "other" }, same: true},
		{name: "quantity", mutate: func(r *CheckoutRequest) { r.Items[0].Quantity = 3 }},
		{name: "price", mutate: func(r *CheckoutRequest) { r.Items[1].Price = dec("4.99") }},
		{name: "variant", mutate: func(r *CheckoutRequest) { r.Items[1].VariantID = "C" }},
		{name: "email", mutate: func(r *CheckoutRequest) { r.Email = "walter@example.com" }},
		{name: "shipping", mutate: func(r *CheckoutRequest) {
			r.Shipping = &domain.ShippingInfo{Name: "The Dude", Address: domain.Address{Line1: "606 Venezia Ave", Country: "US"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			req.Items = append([]domain.CartLineItem(nil), base.Items...)
			tt.mutate(&req)

			if tt.same {
				assert.Equal(t, Fingerprint(base), Fingerprint(req))
			} else {
				assert.NotEqual(t, Fingerprint(base), Fingerprint(req))
			}
		})
	}
}

func TestCreatePaymentIntent_EmailFallsBackToShipping(t *testing.T) {
	processor := &processorMock{}
	issuer := newIssuer(&pricerMock{prices: map[string]domain.AuthoritativePrice{}}, processor, PolicyFailOpen)

	_, err := issuer.CreatePaymentIntent(context.Background(), CheckoutRequest{
		Items: scenarioCart(),
		Shipping: &domain.ShippingInfo{
			Name:    "Walter Sobchak",
			Email:   "walter@example.com",
			Address: domain.Address{Line1: "1 Lane", Country: "US"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "walter@example.com", processor.requests[0].Email)
	assert.Equal(t, "walter@example.com", processor.requests[0].Metadata[MetaEmail])
	require.NotNil(t, processor.requests[0].Shipping)
}

func TestGetStatus(t *testing.T) {
	processor := &processorMock{intent: &domain.PaymentIntent{ID: "pi_9", Status: "succeeded", Amount: 2900, Currency: "usd"}}
	issuer := newIssuer(&pricerMock{}, processor, PolicyFailOpen)

	intent, err := issuer.GetStatus(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", intent.Status)

	_, err = issuer.GetStatus(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)

	_, err = issuer.GetStatus(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBuildMetadata_TruncatesTrailingItems(t *testing.T) {
	order := &domain.ReconciledOrder{Currency: "USD", Valid: true}
	for i := 0; i < 40; i++ {
		order.Lines = append(order.Lines, domain.LineResolution{
			VariantID: fmt.Sprintf("UHJvZHVjdFZhcmlhbnQ6%03d", i),
			Name:      "The Dude's Bathrobe",
			Quantity:  1,
			UnitPrice: dec("49.99"),
			Source:    domain.PriceSourceAuthoritative,
		})
	}

	meta := BuildMetadata(order, "", "ch")

	assert.LessOrEqual(t, len(meta[MetaItems]), 500)
	assert.Equal(t, "true", meta[MetaItemsTruncated])
	assert.NotContains(t, meta, MetaEmail)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(meta[MetaItems]), &decoded))
	assert.NotEmpty(t, decoded)
	assert.Less(t, len(decoded), 40)
	assert.True(t, strings.HasPrefix(meta[MetaItems], `[{"v":"UHJvZHVjdFZhcmlhbnQ6000"`))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFailOpen, p)

	p, err = ParsePolicy(" Fail-Closed ")
	require.NoError(t, err)
	assert.Equal(t, PolicyFailClosed, p)

	_, err = ParsePolicy("yolo")
	assert.Error(t, err)
}
