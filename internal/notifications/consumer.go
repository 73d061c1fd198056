package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox/payloads"
)

const deliveryConsumer = "notification-delivery"

type idempotencyManager interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, deliveryID string) (bool, error)
	Delete(ctx context.Context, consumer, deliveryID string) error
}

// Message is the subset of a Pub/Sub message the consumer reads.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Consumer receives notification_requested events from Pub/Sub and hands
// each one to a delivery sink exactly once per event id.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  idempotencyManager
	sink         Sink
	logg         *logger.Logger
}

// NewConsumer builds a notification delivery consumer.
func NewConsumer(subscription *pubsub.Subscriber, manager idempotencyManager, sink Sink, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if sink == nil {
		return nil, fmt.Errorf("delivery sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		idempotency:  manager,
		sink:         sink,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.Process(ctx, Message{ID: msg.ID, Data: msg.Data, Attributes: msg.Attributes})
		if result.Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// ProcessResult tells the receive loop whether to ack or nack.
type ProcessResult struct {
	Ack  bool
	Nack bool
}

// Process decodes one message and delivers it. Malformed messages are acked
// so they are not redelivered; delivery failures are nacked.
func (c *Consumer) Process(ctx context.Context, msg Message) ProcessResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Info(logCtx, "skipping non-notification event")
		return ProcessResult{Ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return ProcessResult{Ack: true}
	}
	if envelope.EventID == "" {
		c.logg.Warn(logCtx, "envelope missing event id")
		return ProcessResult{Ack: true}
	}

	var payload payloads.NotificationRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return ProcessResult{Ack: true}
	}
	event := EventFromPayload(payload)
	if err := event.Validate(); err != nil {
		c.logg.Error(logCtx, "invalid notification payload", err)
		return ProcessResult{Ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, event.logFields())

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, deliveryConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return ProcessResult{Nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return ProcessResult{Ack: true}
	}

	if err := c.sink.Deliver(logCtx, event); err != nil {
		c.logg.Error(logCtx, "notification delivery failed", err)
		_ = c.idempotency.Delete(ctx, deliveryConsumer, envelope.EventID)
		return ProcessResult{Nack: true}
	}
	return ProcessResult{Ack: true}
}
