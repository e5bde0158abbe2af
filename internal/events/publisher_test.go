package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writerMock struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerMock) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerMock) Close() error {
	w.closed = true
	return nil
}

func testEvent() domain.CheckoutEvent {
	return domain.CheckoutEvent{
		ID:         "evt_1",
		IntentID:   "pi_123",
		Status:     domain.CheckoutStatusSucceeded,
		Amount:     2900,
		Currency:   "usd",
		Email:      "dude@example.com",
		Channel:    "the-dude-abides-shop",
		OccurredAt: time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_KeysByIntent(t *testing.T) {
	writer := &writerMock{}
	p := &KafkaPublisher{writer: writer}

	require.NoError(t, p.Publish(context.Background(), testEvent()))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "pi_123", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "checkout.succeeded", string(msg.Headers[0].Value))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "pi_123", payload["intent_id"])
	assert.Equal(t, "succeeded", payload["status"])
	assert.EqualValues(t, 2900, payload["amount"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &writerMock{err: errors.New("leader not available")}
	p := &KafkaPublisher{writer: writer}

	err := p.Publish(context.Background(), testEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "evt_1")
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &writerMock{}
	p := &KafkaPublisher{writer: writer}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestNewPublisher_WithoutBrokersLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p := NewPublisher(nil, "", logger)
	_, ok := p.(*LogPublisher)
	require.True(t, ok)

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	assert.Contains(t, buf.String(), `"intent_id":"pi_123"`)
	assert.Contains(t, buf.String(), `"event_type":"checkout.succeeded"`)
}

func TestNewPublisher_WithBrokers(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "orders", slog.Default())
	defer p.Close()

	_, ok := p.(*KafkaPublisher)
	assert.True(t, ok)
}
