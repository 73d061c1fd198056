package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Payment is an append-only settlement ledger record.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type           enums.PaymentType   `gorm:"column:type;type:text;not null" json:"type"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Currency       string              `gorm:"column:currency;type:text;not null" json:"currency"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null" json:"status"`
	Method         enums.PaymentMethod `gorm:"column:method;type:text;not null" json:"method"`
	Payee          types.PartyRef      `gorm:"embedded;embeddedPrefix:payee_" json:"payee"`
	OrderID        *uuid.UUID          `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	SubscriptionID *uuid.UUID          `gorm:"column:subscription_id;type:uuid" json:"subscription_id,omitempty"`
	TransactionID  string              `gorm:"column:transaction_id;not null;uniqueIndex" json:"transaction_id"`
	Details        types.JSONMap       `gorm:"column:details;type:jsonb;serializer:json" json:"details,omitempty"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
