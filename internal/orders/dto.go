package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// ItemInput is one requested line. VariantID is optional; when set, ProductID
// may be left empty and is resolved from the variant.
type ItemInput struct {
	ProductID         uuid.UUID
	VariantID         *uuid.UUID
	Quantity          int
	ExternalProductID *string
	ExternalVariantID *string
}

// CreateOrderInput carries everything needed to price and persist an order.
type CreateOrderInput struct {
	Requester       actor.Actor
	DropshipperID   uuid.UUID
	SupplierID      *uuid.UUID
	ExternalOrderID *string
	Source          enums.OrderSource
	CustomerName    string
	CustomerEmail   string
	ShippingAddress types.ShippingAddress
	Items           []ItemInput
	ShippingCost    decimal.Decimal
	Tax             decimal.Decimal
	Currency        string
	Notes           *string
}

// TransitionInput requests a status change. Status is raw input and is parsed
// by the service.
type TransitionInput struct {
	OrderID   uuid.UUID
	Status    string
	Note      string
	Requester actor.Actor
}

// ShippingPatch sets only the fields that are non-nil and non-empty.
type ShippingPatch struct {
	TrackingNumber *string
	TrackingURL    *string
	ShippingMethod *string
}

// ShippingInput attaches shipping details to an order.
type ShippingInput struct {
	OrderID   uuid.UUID
	Patch     ShippingPatch
	Requester actor.Actor
}

// Result is the outcome of a mutating order operation. Warnings report
// best-effort steps that failed after the order was persisted.
type Result struct {
	Order    *models.Order `json:"order"`
	Created  bool          `json:"created"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ListFilters narrows ListOrders.
type ListFilters struct {
	Status *enums.OrderStatus
}

// ListScope restricts the orders visible to a requester. A zero scope sees all.
type ListScope struct {
	SupplierID    *uuid.UUID
	DropshipperID *uuid.UUID
	AgentID       *uuid.UUID
}

// OrderList is one page of orders, newest first.
type OrderList = pagination.Page[models.Order]
