package catalog

import (
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the priced, owner-tagged view of a product at lookup time.
type ProductSnapshot struct {
	ProductID       uuid.UUID
	Name            string
	SKU             string
	Price           decimal.Decimal
	Cost            decimal.Decimal
	CommissionRate  decimal.Decimal
	AgentRate       *decimal.Decimal
	Owner           types.PartyRef
	SupplierID      *uuid.UUID
	SourcingAgentID *uuid.UUID
	Quantity        *int
	IsActive        bool
}

// VariantSnapshot resolves a variant's effective price against its product.
type VariantSnapshot struct {
	VariantID uuid.UUID
	ProductID uuid.UUID
	Name      string
	SKU       string
	Price     decimal.Decimal
	Quantity  *int
}

// Listing is a storefront line resolved to catalog ids.
type Listing struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
}

func productSnapshotFromModel(p *models.Product) ProductSnapshot {
	snap := ProductSnapshot{
		ProductID:      p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		Price:          p.Price,
		Cost:           p.Cost,
		CommissionRate: p.CommissionRate,
		Owner:          p.Owner,
		Quantity:       p.Quantity,
		IsActive:       p.IsActive,
	}
	if p.AgentRate.Valid {
		rate := p.AgentRate.Decimal
		snap.AgentRate = &rate
	}
	owner := p.Owner.ID
	switch {
	case p.Owner.IsSupplier():
		snap.SupplierID = &owner
	case p.Owner.IsSourcingAgent():
		snap.SourcingAgentID = &owner
	}
	return snap
}

func variantSnapshotFromModel(v *models.ProductVariant, productPrice decimal.Decimal) VariantSnapshot {
	price := productPrice
	if v.Price.Valid {
		price = v.Price.Decimal
	}
	return VariantSnapshot{
		VariantID: v.ID,
		ProductID: v.ProductID,
		Name:      v.Name,
		SKU:       v.SKU,
		Price:     price,
		Quantity:  v.Quantity,
	}
}
