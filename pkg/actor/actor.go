package actor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// Actor is the explicit requester passed into every service operation.
type Actor struct {
	UserID  uuid.UUID
	PartyID uuid.UUID
	Role    enums.ActorRole
}

// System returns the actor used for internally triggered mutations.
func System() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}

// Admin builds an admin actor for the given user.
func Admin(userID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: enums.ActorRoleAdmin}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

func (a Actor) IsSystem() bool {
	return a.Role == enums.ActorRoleSystem
}

// Privileged reports whether ownership checks are bypassed.
func (a Actor) Privileged() bool {
	return a.IsAdmin() || a.IsSystem()
}

// Owns reports whether the actor acts for the given party.
func (a Actor) Owns(ref types.PartyRef) bool {
	if a.PartyID == uuid.Nil || ref.ID != a.PartyID {
		return false
	}
	switch a.Role {
	case enums.ActorRoleSupplier:
		return ref.Kind == enums.PartyKindSupplier
	case enums.ActorRoleSourcingAgent:
		return ref.Kind == enums.PartyKindSourcingAgent
	default:
		return false
	}
}

// UserRef returns the acting user id for audit columns, nil for system actors.
func (a Actor) UserRef() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// Validate checks the actor carries enough identity for its role.
func (a Actor) Validate() error {
	if !a.Role.IsValid() {
		return fmt.Errorf("invalid actor role %q", a.Role)
	}
	if a.IsSystem() {
		return nil
	}
	if a.UserID == uuid.Nil {
		return fmt.Errorf("actor user id is required")
	}
	if !a.IsAdmin() && a.PartyID == uuid.Nil {
		return fmt.Errorf("actor party id is required for role %s", a.Role)
	}
	return nil
}
