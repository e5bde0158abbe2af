// Package storefront is a typed client for the storefront HTTP API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx reply carrying the storefront's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("storefront %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("storefront %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type CheckoutPayload struct {
	Items    []domain.CartLineItem `json:"items"`
	Email    string                `json:"email,omitempty"`
	Shipping *domain.ShippingInfo  `json:"shipping,omitempty"`
}

type PaymentIntent struct {
	ClientSecret     string  `json:"clientSecret"`
	PaymentIntentID  string  `json:"paymentIntentId"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	PricingValidated bool    `json:"pricingValidated"`
}

type PaymentStatus struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	CheckoutStatus string            `json:"checkoutStatus"`
	Amount         float64           `json:"amount"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Product fetches a catalog product by slug. Slugs of the form local-<id>
// resolve against the storefront's own product table.
func (c *Client) Product(ctx context.Context, slug string) (*domain.Product, error) {
	if id, ok := strings.CutPrefix(slug, "local-"); ok {
		if _, err := strconv.ParseInt(id, 10, 64); err == nil {
			var local domain.LocalProduct
			if err := c.do(ctx, http.MethodGet, "/api/products/"+id, nil, nil, &local); err != nil {
				return nil, err
			}
			return local.AsCatalogProduct(), nil
		}
	}

	var product domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/saleor/product/"+url.PathEscape(slug), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, payload CheckoutPayload, idempotencyKey string) (*PaymentIntent, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	var out PaymentIntent
	if err := c.do(ctx, http.MethodPost, "/api/stripe/create-payment-intent", header, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PaymentStatus(ctx context.Context, id string) (*PaymentStatus, error) {
	var out PaymentStatus
	if err := c.do(ctx, http.MethodGet, "/api/stripe/payment-intent/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			apiErr.Message, apiErr.Code = envelope.Error, envelope.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
