package stripepay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Config struct {
	SecretKey string
	// BaseURL overrides the API endpoint. Empty means the live API.
	BaseURL string
	// MaxNetworkRetries is applied to every request, including ones sent
	// without an idempotency key. Zero disables retries.
	MaxNetworkRetries int64
}

// Client creates and reads payment intents through the Stripe API.
type Client struct {
	api    *client.API
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	return &Client{
		api:    client.New(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend}),
		logger: logger,
	}, nil
}

func (c *Client) CreateIntent(ctx context.Context, req payment.IntentRequest) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	if req.Shipping != nil {
		params.Shipping = shippingParams(req.Shipping)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return toDomain(pi), nil
}

func (c *Client) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, fmt.Errorf("%w: %s", payment.ErrIntentNotFound, id)
		}
		return nil, mapError(err)
	}
	return toDomain(pi), nil
}

func shippingParams(s *domain.ShippingInfo) *stripe.ShippingDetailsParams {
	addr := &stripe.AddressParams{
		Line1:   stripe.String(s.Address.Line1),
		Country: stripe.String(s.Address.Country),
	}
	if s.Address.Line2 != "" {
		addr.Line2 = stripe.String(s.Address.Line2)
	}
	if s.Address.City != "" {
		addr.City = stripe.String(s.Address.City)
	}
	if s.Address.State != "" {
		addr.State = stripe.String(s.Address.State)
	}
	if s.Address.PostalCode != "" {
		addr.PostalCode = stripe.String(s.Address.PostalCode)
	}
	return &stripe.ShippingDetailsParams{
		Name:    stripe.String(s.Name),
		Address: addr,
	}
}

func toDomain(pi *stripe.PaymentIntent) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		Metadata:     pi.Metadata,
	}
}

// mapError keeps the processor's message intact and drops everything else.
func mapError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = string(stripeErr.Type)
		}
		return &payment.ProcessorError{
			Message:    msg,
			StatusCode: stripeErr.HTTPStatusCode,
			Code:       string(stripeErr.Code),
		}
	}
	return &payment.ProcessorError{
		Message:    err.Error(),
		StatusCode: http.StatusBadGateway,
	}
}
