package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// NotificationRequestedEvent asks downstream delivery to notify one recipient.
type NotificationRequestedEvent struct {
	Event       enums.NotificationEventType `json:"event"`
	Recipient   enums.NotificationRecipient `json:"recipient"`
	RecipientID *uuid.UUID                  `json:"recipient_id,omitempty"`
	OrderID     *uuid.UUID                  `json:"order_id,omitempty"`
	OrderNumber string                      `json:"order_number,omitempty"`
	ProductID   *uuid.UUID                  `json:"product_id,omitempty"`
	VariantID   *uuid.UUID                  `json:"variant_id,omitempty"`
	Email       string                      `json:"email,omitempty"`
	Status      enums.OrderStatus           `json:"status,omitempty"`
	Attributes  map[string]string           `json:"attributes,omitempty"`
	RequestedAt time.Time                   `json:"requested_at"`
}

// CommissionRecordedEvent announces a settlement ledger row.
type CommissionRecordedEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       *uuid.UUID          `json:"order_id,omitempty"`
	Type          enums.PaymentType   `json:"type"`
	Status        enums.PaymentStatus `json:"status"`
	Payee         types.PartyRef      `json:"payee"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	TransactionID string              `json:"transaction_id"`
}
