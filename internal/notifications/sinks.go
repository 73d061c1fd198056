package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxSink persists each event as a notification_requested outbox row in
// its own transaction; the outbox publisher ships it to Pub/Sub.
type OutboxSink struct {
	tx     txRunner
	outbox outboxEmitter
}

// NewOutboxSink builds an outbox-backed sink.
func NewOutboxSink(tx txRunner, emitter outboxEmitter) (*OutboxSink, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &OutboxSink{tx: tx, outbox: emitter}, nil
}

func (s *OutboxSink) Deliver(ctx context.Context, event Event) error {
	aggregateType, aggregateID := aggregateFor(event)
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			Data:          event.payload(),
			OccurredAt:    event.OccurredAt,
		})
	})
}

func aggregateFor(event Event) (enums.OutboxAggregateType, uuid.UUID) {
	switch {
	case event.OrderID != nil:
		return enums.AggregateOrder, *event.OrderID
	case event.ProductID != nil:
		return enums.AggregateProduct, *event.ProductID
	default:
		return enums.AggregateNotification, uuid.New()
	}
}

// LogSink writes events to the structured log. It stands in for outbound
// delivery channels in development and in the delivery worker.
type LogSink struct {
	logg *logger.Logger
}

// NewLogSink builds a log-only sink.
func NewLogSink(logg *logger.Logger) (*LogSink, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogSink{logg: logg}, nil
}

func (s *LogSink) Deliver(ctx context.Context, event Event) error {
	fields := event.logFields()
	if event.OrderNumber != "" {
		fields["order_number"] = event.OrderNumber
	}
	for key, value := range event.Attributes {
		fields["attr_"+key] = value
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "notification delivered")
	return nil
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
