package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment/stripepay"
	"github.com/stripe/stripe-go/v76/webhook"
)

type PublisherMock struct {
	events []domain.CheckoutEvent
	err    error
}

func (m *PublisherMock) Publish(_ context.Context, event domain.CheckoutEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *PublisherMock) Close() error {
	return nil
}

const testWebhookSecret = "whsec_handler_test"

func signedWebhookRequest(payload string) *http.Request {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	request := httptest.NewRequest("POST", "/api/stripe/webhook", bytes.NewReader(signed.Payload))
	request.Header.Set("Stripe-Signature", signed.Header)
	return request
}

func TestWebhook_PublishesTerminalEvent(t *testing.T) {
	publisher := &PublisherMock{}
	handler := NewWebhookHandler(stripepay.NewWebhookVerifier(testWebhookSecret), publisher, 5*time.Second, discardLogger())
	recorder := httptest.NewRecorder()

	handler.Handle(recorder, signedWebhookRequest(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","created":1,
		"data":{"object":{"id":"pi_123","object":"payment_intent","amount":2900,"currency":"usd","status":"succeeded"}}}`))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}
	if len(publisher.events) != 1 {
		t.Fatalf("Expected 1 published event, got %d", len(publisher.events))
	}
	if publisher.events[0].IntentID != "pi_123" || publisher.events[0].Status != domain.CheckoutStatusSucceeded {
		t.Errorf("Unexpected event: %+v", publisher.events[0])
	}
}

func TestWebhook_IgnoredEventIsAcknowledged(t *testing.T) {
	publisher := &PublisherMock{}
	handler := NewWebhookHandler(stripepay.NewWebhookVerifier(testWebhookSecret), publisher, 5*time.Second, discardLogger())
	recorder := httptest.NewRecorder()

	handler.Handle(recorder, signedWebhookRequest(`{"id":"evt_2","object":"event","type":"customer.created","created":1,"data":{"object":{"id":"cus_1"}}}`))

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	if len(publisher.events) != 0 {
		t.Errorf("Expected nothing published, got %d events", len(publisher.events))
	}
}

func TestWebhook_BadSignatureIs400(t *testing.T) {
	publisher := &PublisherMock{}
	handler := NewWebhookHandler(stripepay.NewWebhookVerifier(testWebhookSecret), publisher, 5*time.Second, discardLogger())
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/stripe/webhook", bytes.NewBufferString(`{"id":"evt_3"}`))
	request.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	handler.Handle(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestWebhook_PublishFailureAsksForRedelivery(t *testing.T) {
	publisher := &PublisherMock{err: errors.New("broker down")}
	handler := NewWebhookHandler(stripepay.NewWebhookVerifier(testWebhookSecret), publisher, 5*time.Second, discardLogger())
	recorder := httptest.NewRecorder()

	handler.Handle(recorder, signedWebhookRequest(`{"id":"evt_4","object":"event","type":"payment_intent.canceled","created":1,
		"data":{"object":{"id":"pi_9","object":"payment_intent","amount":100,"currency":"usd","status":"canceled"}}}`))

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
}
