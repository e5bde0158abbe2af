package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/circuitbreaker"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotFound = errors.New("not found in catalog")

// UpstreamError is a non-2xx answer from the catalog API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("catalog API error: %d - %s", e.StatusCode, e.Body)
}

// GraphQLError carries the first error the catalog reported for a query.
type GraphQLError struct {
	Message string
}

func (e *GraphQLError) Error() string {
	return "catalog GraphQL error: " + e.Message
}

type Config struct {
	APIURL             string
	Timeout            time.Duration
	MediaInternalHosts []string
	MediaPublicURL     string
	Breaker            circuitbreaker.Config
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client posts GraphQL documents to the catalog API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[json.RawMessage]
	rewriter   *URLRewriter
	logger     *slog.Logger
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, errors.New("catalog API URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	breakerCfg := cfg.Breaker
	breakerCfg.Ignore = func(err error) bool {
		var gqlErr *GraphQLError
		return errors.As(err, &gqlErr)
	}

	return &Client{
		endpoint: cfg.APIURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		breaker:  circuitbreaker.New[json.RawMessage]("catalog", breakerCfg, logger),
		rewriter: NewURLRewriter(cfg.MediaInternalHosts, cfg.MediaPublicURL),
		logger:   logger,
	}, nil
}

// Query runs a GraphQL document and decodes its data object into out, after
// rewriting media URLs.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	data, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.post(ctx, query, variables)
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return fmt.Errorf("catalog unavailable: %w", err)
		}
		return err
	}

	data, err = c.rewrite(data)
	if err != nil {
		return fmt.Errorf("rewrite catalog payload: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode catalog payload: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode catalog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		c.logger.WarnContext(ctx, "catalog query returned errors", "count", len(envelope.Errors), "first", envelope.Errors[0].Message)
		return nil, &GraphQLError{Message: envelope.Errors[0].Message}
	}
	return envelope.Data, nil
}

func (c *Client) rewrite(data json.RawMessage) (json.RawMessage, error) {
	if !c.rewriter.Enabled() || len(data) == 0 {
		return data, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(c.rewriter.Rewrite(generic))
}
