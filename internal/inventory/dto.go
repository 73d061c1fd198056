package inventory

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Target identifies the stock record a mutation applies to. A variant target
// may omit ProductID; it is resolved from the variant row.
type Target struct {
	ProductID uuid.UUID  `json:"product_id,omitempty"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
}

// ForProduct targets product-level stock.
func ForProduct(id uuid.UUID) Target {
	return Target{ProductID: id}
}

// ForVariant targets variant-level stock.
func ForVariant(id uuid.UUID) Target {
	return Target{VariantID: &id}
}

func (t Target) validate() error {
	if t.VariantID != nil {
		if *t.VariantID == uuid.Nil {
			return fmt.Errorf("variant id must not be empty")
		}
		return nil
	}
	if t.ProductID == uuid.Nil {
		return fmt.Errorf("product or variant id is required")
	}
	return nil
}

func (t Target) lockKey() string {
	if t.VariantID != nil {
		return "inventory:variant:" + t.VariantID.String()
	}
	return "inventory:product:" + t.ProductID.String()
}

// OrderLine is one order item to decrement.
type OrderLine struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

func (l OrderLine) target() Target {
	return Target{ProductID: l.ProductID, VariantID: l.VariantID}
}

// BulkUpdate is one absolute quantity assignment inside BulkApply.
type BulkUpdate struct {
	Target   Target `json:"target"`
	Quantity int    `json:"quantity"`
}

// StockLevel reports the on-hand quantity of one product or variant.
type StockLevel struct {
	ProductID uuid.UUID      `json:"product_id"`
	VariantID *uuid.UUID     `json:"variant_id,omitempty"`
	Owner     types.PartyRef `json:"owner"`
	SKU       string         `json:"sku"`
	Name      string         `json:"name"`
	Quantity  *int           `json:"quantity"`
}

// stock is a row-locked quantity record.
type stock struct {
	productID uuid.UUID
	variantID *uuid.UUID
	owner     types.PartyRef
	quantity  *int
}

func (s stock) current() int {
	if s.quantity == nil {
		return 0
	}
	return *s.quantity
}

type change struct {
	changeType enums.InventoryChangeType
	orderID    *uuid.UUID
	notes      *string
	apply      func(previous int) int
}
