package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// InventoryLedgerEntry is the immutable audit record of one quantity change.
type InventoryLedgerEntry struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID        uuid.UUID                 `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	VariantID        *uuid.UUID                `gorm:"column:variant_id;type:uuid" json:"variant_id,omitempty"`
	PreviousQuantity int                       `gorm:"column:previous_quantity;not null" json:"previous_quantity"`
	NewQuantity      int                       `gorm:"column:new_quantity;not null" json:"new_quantity"`
	ChangeAmount     int                       `gorm:"column:change_amount;not null" json:"change_amount"`
	ChangeType       enums.InventoryChangeType `gorm:"column:change_type;type:text;not null" json:"change_type"`
	OrderID          *uuid.UUID                `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	ActorUserID      *uuid.UUID                `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id,omitempty"`
	Notes            *string                   `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
