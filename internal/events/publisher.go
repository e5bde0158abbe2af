package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "checkout-events"

// Publisher emits checkout outcomes for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event domain.CheckoutEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

// Publish writes the event keyed by intent id so every event of one intent
// lands on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.CheckoutEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal checkout event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.IntentID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType(event.Status))},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish checkout event %s: %w", event.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the log instead of a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.CheckoutEvent) error {
	p.logger.InfoContext(ctx, "checkout event",
		"event_type", EventType(event.Status),
		"event_id", event.ID,
		"intent_id", event.IntentID,
		"amount", event.Amount,
		"currency", event.Currency,
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// log publisher otherwise.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info("no kafka brokers configured, checkout events will be logged")
		return NewLogPublisher(logger)
	}
	return NewKafkaPublisher(topic, brokers...)
}

func EventType(status domain.CheckoutStatus) string {
	return "checkout." + string(status)
}
