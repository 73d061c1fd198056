package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Product is a catalog listing owned by exactly one supplier or sourcing agent.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Owner          types.PartyRef      `gorm:"embedded;embeddedPrefix:owner_" json:"owner"`
	SKU            string              `gorm:"column:sku;not null" json:"sku"`
	Name           string              `gorm:"column:name;not null" json:"name"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(14,2);not null" json:"price"`
	Cost           decimal.Decimal     `gorm:"column:cost;type:numeric(14,2);not null;default:0" json:"cost"`
	CommissionRate decimal.Decimal     `gorm:"column:commission_rate;type:numeric(5,2);not null;default:0" json:"commission_rate"`
	AgentRate      decimal.NullDecimal `gorm:"column:sourcing_agent_commission_rate;type:numeric(5,2)" json:"sourcing_agent_commission_rate"`
	Quantity       *int                `gorm:"column:quantity" json:"quantity"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Variants       []ProductVariant    `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ProductVariant is a purchasable option of a product with its own stock.
type ProductVariant struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	SKU       string              `gorm:"column:sku;not null" json:"sku"`
	Name      string              `gorm:"column:name;not null" json:"name"`
	Price     decimal.NullDecimal `gorm:"column:price;type:numeric(14,2)" json:"price"`
	Quantity  *int                `gorm:"column:quantity" json:"quantity"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
