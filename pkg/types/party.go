package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
)

// PartyRef is a tagged reference to either a supplier or a sourcing agent.
// Stored as two columns (<prefix>kind, <prefix>id) when embedded in a model.
type PartyRef struct {
	Kind enums.PartyKind `gorm:"column:kind;type:text" json:"kind"`
	ID   uuid.UUID       `gorm:"column:id;type:uuid" json:"id"`
}

// Supplier builds a supplier reference.
func Supplier(id uuid.UUID) PartyRef {
	return PartyRef{Kind: enums.PartyKindSupplier, ID: id}
}

// SourcingAgent builds a sourcing-agent reference.
func SourcingAgent(id uuid.UUID) PartyRef {
	return PartyRef{Kind: enums.PartyKindSourcingAgent, ID: id}
}

// IsZero reports whether the reference is unset.
func (p PartyRef) IsZero() bool {
	return p.Kind == "" && p.ID == uuid.Nil
}

func (p PartyRef) IsSupplier() bool {
	return p.Kind == enums.PartyKindSupplier && p.ID != uuid.Nil
}

func (p PartyRef) IsSourcingAgent() bool {
	return p.Kind == enums.PartyKindSourcingAgent && p.ID != uuid.Nil
}

// Validate ensures the discriminant is known and the id is present.
func (p PartyRef) Validate() error {
	if !p.Kind.IsValid() {
		return fmt.Errorf("party: invalid kind %q", p.Kind)
	}
	if p.ID == uuid.Nil {
		return fmt.Errorf("party: missing id")
	}
	return nil
}

func (p PartyRef) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.ID)
}
