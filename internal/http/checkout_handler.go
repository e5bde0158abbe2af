package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment"
	"github.com/go-chi/chi/v5"
)

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, req payment.CheckoutRequest) (*domain.CheckoutReceipt, error)
	GetStatus(ctx context.Context, id string) (*domain.PaymentIntent, error)
}

type CheckoutHandler struct {
	payments       PaymentService
	publishableKey string
	timeout        time.Duration
	logger         *slog.Logger
}

func NewCheckoutHandler(payments PaymentService, publishableKey string, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		payments:       payments,
		publishableKey: publishableKey,
		timeout:        timeout,
		logger:         logger,
	}
}

type CreatePaymentIntentRequestDTO struct {
	Items          []domain.CartLineItem `json:"items"`
	Email          string                `json:"email"`
	Shipping       *domain.ShippingInfo  `json:"shipping"`
	IdempotencyKey string                `json:"idempotencyKey"`
}

type PaymentIntentResponseDTO struct {
	ClientSecret     string  `json:"clientSecret"`
	PaymentIntentID  string  `json:"paymentIntentId"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	PricingValidated bool    `json:"pricingValidated"`
}

type PaymentStatusResponseDTO struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	CheckoutStatus string            `json:"checkoutStatus"`
	Amount         float64           `json:"amount"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

type StripeConfigResponseDTO struct {
	PublishableKey string `json:"publishableKey"`
}

// POST /api/stripe/create-payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreatePaymentIntentRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	receipt, err := h.payments.CreatePaymentIntent(ctx, payment.CheckoutRequest{
		Items:          req.Items,
		Email:          req.Email,
		Shipping:       req.Shipping,
		IdempotencyKey: key,
	})
	if err != nil {
		h.handlePaymentError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, PaymentIntentResponseDTO{
		ClientSecret:     receipt.ClientSecret,
		PaymentIntentID:  receipt.PaymentIntentID,
		Amount:           receipt.Amount().InexactFloat64(),
		Currency:         receipt.Currency,
		PricingValidated: receipt.PricingValidated,
	})
}

// GET /api/stripe/payment-intent/{id}
func (h *CheckoutHandler) GetPaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	intent, err := h.payments.GetStatus(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.handlePaymentError(w, r, err)
		return
	}

	currency := strings.ToUpper(intent.Currency)
	metadata := intent.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	respondJSON(w, http.StatusOK, PaymentStatusResponseDTO{
		ID:             intent.ID,
		Status:         intent.Status,
		CheckoutStatus: domain.CheckoutStatusFromIntent(intent.Status).String(),
		Amount:         domain.FromMinorUnits(intent.Amount, currency).InexactFloat64(),
		Currency:       currency,
		Metadata:       metadata,
	})
}

// GET /api/stripe/config
func (h *CheckoutHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, StripeConfigResponseDTO{PublishableKey: h.publishableKey})
}

func (h *CheckoutHandler) handlePaymentError(w http.ResponseWriter, r *http.Request, err error) {
	var procErr *payment.ProcessorError

	switch {
	case errors.Is(err, payment.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "Cart is empty")
	case errors.Is(err, payment.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, payment.ErrIdempotencyConflict):
		respondError(w, http.StatusConflict, "idempotency_conflict",
			"This checkout attempt was already submitted with a different cart, please start a new checkout")
	case errors.Is(err, payment.ErrIntentNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Payment intent not found")
	case errors.Is(err, payment.ErrPricingUnavailable):
		respondError(w, http.StatusServiceUnavailable, "pricing_unavailable",
			"Prices could not be verified right now, please try again")
	case errors.As(err, &procErr) && procErr.Declined():
		respondError(w, http.StatusBadRequest, "payment_rejected", procErr.Message)
	case errors.As(err, &procErr):
		h.logger.ErrorContext(r.Context(), "payment processor failure",
			"request_id", getRequestID(r.Context()), "status", procErr.StatusCode, "error", err)
		respondError(w, http.StatusInternalServerError, "payment_error", procErr.Message)
	default:
		h.logger.ErrorContext(r.Context(), "checkout failed",
			"request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
