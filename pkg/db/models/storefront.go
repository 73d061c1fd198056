package models

import (
	"time"

	"github.com/google/uuid"
)

// StorefrontConnection maps an external shop to the dropshipper that owns it.
type StorefrontConnection struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopDomain    string    `gorm:"column:shop_domain;not null;uniqueIndex"`
	DropshipperID uuid.UUID `gorm:"column:dropshipper_id;type:uuid;not null"`
	WebhookSecret string    `gorm:"column:webhook_secret;not null"`
	Currency      string    `gorm:"column:currency;type:text;not null;default:'USD'"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ExternalListing links a storefront product (and optional variant) to the catalog.
type ExternalListing struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConnectionID      uuid.UUID  `gorm:"column:connection_id;type:uuid;not null"`
	ExternalProductID string     `gorm:"column:external_product_id;not null"`
	ExternalVariantID *string    `gorm:"column:external_variant_id"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID         *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
