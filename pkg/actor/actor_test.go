package actor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

func TestActorOwns(t *testing.T) {
	party := uuid.New()
	supplier := Actor{UserID: uuid.New(), PartyID: party, Role: enums.ActorRoleSupplier}
	agent := Actor{UserID: uuid.New(), PartyID: party, Role: enums.ActorRoleSourcingAgent}

	assert.True(t, supplier.Owns(types.Supplier(party)))
	assert.False(t, supplier.Owns(types.SourcingAgent(party)))
	assert.True(t, agent.Owns(types.SourcingAgent(party)))
	assert.False(t, supplier.Owns(types.Supplier(uuid.New())))
	assert.False(t, Actor{Role: enums.ActorRoleDropshipper, PartyID: party}.Owns(types.Supplier(party)))
}

func TestActorPrivileged(t *testing.T) {
	assert.True(t, System().Privileged())
	assert.True(t, Admin(uuid.New()).Privileged())
	assert.False(t, Actor{Role: enums.ActorRoleSupplier}.Privileged())
	assert.Nil(t, System().UserRef())
}

func TestActorValidate(t *testing.T) {
	require.NoError(t, System().Validate())
	require.NoError(t, Admin(uuid.New()).Validate())
	require.NoError(t, Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleDropshipper}.Validate())

	assert.Error(t, Actor{}.Validate())
	assert.Error(t, Actor{UserID: uuid.New(), Role: enums.ActorRoleSupplier}.Validate())
	assert.Error(t, Actor{PartyID: uuid.New(), Role: enums.ActorRoleSupplier}.Validate())
}
