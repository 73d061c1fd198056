package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Order is the aggregate root for a single sale between a dropshipper and a supplier.
type Order struct {
	ID                            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber                   string                   `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	DropshipperID                 uuid.UUID                `gorm:"column:dropshipper_id;type:uuid;not null" json:"dropshipper_id"`
	SupplierID                    uuid.UUID                `gorm:"column:supplier_id;type:uuid;not null" json:"supplier_id"`
	ExternalOrderID               *string                  `gorm:"column:external_order_id" json:"external_order_id,omitempty"`
	Source                        enums.OrderSource        `gorm:"column:source;type:text;not null;default:'manual'" json:"source"`
	CustomerName                  string                   `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerEmail                 string                   `gorm:"column:customer_email;not null" json:"customer_email"`
	ShippingAddress               types.ShippingAddress    `gorm:"column:shipping_address;type:jsonb;serializer:json" json:"shipping_address"`
	Subtotal                      decimal.Decimal          `gorm:"column:subtotal;type:numeric(14,2);not null" json:"subtotal"`
	ShippingCost                  decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(14,2);not null" json:"shipping_cost"`
	Tax                           decimal.Decimal          `gorm:"column:tax;type:numeric(14,2);not null" json:"tax"`
	Total                         decimal.Decimal          `gorm:"column:total;type:numeric(14,2);not null" json:"total"`
	CommissionAmount              decimal.Decimal          `gorm:"column:commission_amount;type:numeric(14,2);not null" json:"commission_amount"`
	SourcingAgentCommissionAmount decimal.Decimal          `gorm:"column:sourcing_agent_commission_amount;type:numeric(14,2);not null" json:"sourcing_agent_commission_amount"`
	PayoutAmount                  decimal.Decimal          `gorm:"column:payout_amount;type:numeric(14,2);not null" json:"payout_amount"`
	Currency                      string                   `gorm:"column:currency;type:text;not null;default:'USD'" json:"currency"`
	Status                        enums.OrderStatus        `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	PaymentStatus                 enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'" json:"payment_status"`
	TrackingNumber                *string                  `gorm:"column:tracking_number" json:"tracking_number,omitempty"`
	TrackingURL                   *string                  `gorm:"column:tracking_url" json:"tracking_url,omitempty"`
	ShippingMethod                *string                  `gorm:"column:shipping_method" json:"shipping_method,omitempty"`
	Notes                         *string                  `gorm:"column:notes" json:"notes,omitempty"`
	Version                       int                      `gorm:"column:version;not null;default:1" json:"version"`
	SettledAt                     *time.Time               `gorm:"column:settled_at" json:"settled_at,omitempty"`
	Items                         []OrderItem              `gorm:"foreignKey:OrderID" json:"items"`
	History                       []OrderStatusEntry       `gorm:"foreignKey:OrderID" json:"status_history"`
	CreatedAt                     time.Time                `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                     time.Time                `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// OrderItem snapshots a priced catalog line at the time of sale.
type OrderItem struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	Position          int                 `gorm:"column:position;not null" json:"position"`
	ProductID         uuid.UUID           `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	VariantID         *uuid.UUID          `gorm:"column:variant_id;type:uuid" json:"variant_id,omitempty"`
	ExternalProductID *string             `gorm:"column:external_product_id" json:"external_product_id,omitempty"`
	ExternalVariantID *string             `gorm:"column:external_variant_id" json:"external_variant_id,omitempty"`
	Name              string              `gorm:"column:name;not null" json:"name"`
	SKU               string              `gorm:"column:sku;not null" json:"sku"`
	Quantity          int                 `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice         decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	LineTotal         decimal.Decimal     `gorm:"column:line_total;type:numeric(14,2);not null" json:"line_total"`
	CommissionRate    decimal.Decimal     `gorm:"column:commission_rate;type:numeric(5,2);not null" json:"commission_rate"`
	AgentRate         decimal.NullDecimal `gorm:"column:agent_commission_rate;type:numeric(5,2)" json:"agent_commission_rate"`
	Owner             types.PartyRef      `gorm:"embedded;embeddedPrefix:owner_" json:"owner"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// OrderStatusEntry is one append-only row of an order's status history.
type OrderStatusEntry struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	Sequence    int               `gorm:"column:sequence;not null" json:"sequence"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null" json:"status"`
	Note        *string           `gorm:"column:note" json:"note,omitempty"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid" json:"actor_user_id,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OrderStatusEntry) TableName() string {
	return "order_status_history"
}
