// Package notifications fans order and inventory events out to recipients
// without blocking the callers that raise them.
package notifications

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox/payloads"
)

// Event is one notification addressed to a single recipient.
type Event struct {
	Type        enums.NotificationEventType
	Recipient   enums.NotificationRecipient
	RecipientID *uuid.UUID
	OrderID     *uuid.UUID
	OrderNumber string
	ProductID   *uuid.UUID
	VariantID   *uuid.UUID
	Email       string
	Status      enums.OrderStatus
	Attributes  map[string]string
	OccurredAt  time.Time
}

// Validate checks the event names a known type and recipient.
func (e Event) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("invalid notification event type %q", e.Type)
	}
	if !e.Recipient.IsValid() {
		return fmt.Errorf("invalid notification recipient %q", e.Recipient)
	}
	if e.Recipient == enums.NotificationRecipientCustomer && e.Email == "" {
		return fmt.Errorf("customer notifications require an email")
	}
	return nil
}

func (e Event) payload() payloads.NotificationRequestedEvent {
	return payloads.NotificationRequestedEvent{
		Event:       e.Type,
		Recipient:   e.Recipient,
		RecipientID: e.RecipientID,
		OrderID:     e.OrderID,
		OrderNumber: e.OrderNumber,
		ProductID:   e.ProductID,
		VariantID:   e.VariantID,
		Email:       e.Email,
		Status:      e.Status,
		Attributes:  e.Attributes,
		RequestedAt: e.OccurredAt,
	}
}

// EventFromPayload rebuilds an event shipped through the outbox.
func EventFromPayload(p payloads.NotificationRequestedEvent) Event {
	return Event{
		Type:        p.Event,
		Recipient:   p.Recipient,
		RecipientID: p.RecipientID,
		OrderID:     p.OrderID,
		OrderNumber: p.OrderNumber,
		ProductID:   p.ProductID,
		VariantID:   p.VariantID,
		Email:       p.Email,
		Status:      p.Status,
		Attributes:  p.Attributes,
		OccurredAt:  p.RequestedAt,
	}
}

func (e Event) logFields() map[string]any {
	fields := map[string]any{
		"notification_event": e.Type.String(),
		"recipient":          e.Recipient.String(),
	}
	if e.RecipientID != nil {
		fields["recipient_id"] = e.RecipientID.String()
	}
	if e.OrderID != nil {
		fields["order_id"] = e.OrderID.String()
	}
	if e.ProductID != nil {
		fields["product_id"] = e.ProductID.String()
	}
	if e.Status != "" {
		fields["status"] = e.Status.String()
	}
	return fields
}
