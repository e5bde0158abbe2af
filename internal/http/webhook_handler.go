package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/events"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment/stripepay"
)

type EventVerifier interface {
	CheckoutEvent(payload []byte, signature string) (*domain.CheckoutEvent, error)
}

// WebhookHandler turns signed processor callbacks into checkout events.
type WebhookHandler struct {
	verifier  EventVerifier
	publisher events.Publisher
	timeout   time.Duration
	logger    *slog.Logger
}

func NewWebhookHandler(verifier EventVerifier, publisher events.Publisher, timeout time.Duration, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier:  verifier,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

type webhookAckDTO struct {
	Received bool `json:"received"`
}

// POST /api/stripe/webhook
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}

	event, err := h.verifier.CheckoutEvent(payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, stripepay.ErrInvalidSignature) {
		h.logger.WarnContext(r.Context(), "rejected webhook", "error", err)
		respondError(w, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}
	if event == nil {
		respondJSON(w, http.StatusOK, webhookAckDTO{Received: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// a non-2xx makes the processor redeliver
	if err := h.publisher.Publish(ctx, *event); err != nil {
		h.logger.ErrorContext(ctx, "publish checkout event failed",
			"intent_id", event.IntentID, "status", event.Status, "error", err)
		respondError(w, http.StatusInternalServerError, "publish_failed", "could not record event")
		return
	}

	h.logger.InfoContext(ctx, "checkout outcome recorded", "intent_id", event.IntentID, "status", event.Status)
	respondJSON(w, http.StatusOK, webhookAckDTO{Received: true})
}
