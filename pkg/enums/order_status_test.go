package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("lost_in_mail")
	assert.Error(t, err)
	assert.False(t, OrderStatus("Shipped").IsValid())
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		OrderStatusPending:    false,
		OrderStatusProcessing: false,
		OrderStatusShipped:    false,
		OrderStatusDelivered:  true,
		OrderStatusCancelled:  true,
		OrderStatusRefunded:   true,
	}
	for status, want := range terminal {
		assert.Equal(t, want, status.IsTerminal(), status)
	}
	assert.True(t, OrderStatusPending.AllowsAutoShip())
	assert.True(t, OrderStatusProcessing.AllowsAutoShip())
	assert.False(t, OrderStatusShipped.AllowsAutoShip())
}

func TestPartyKindRecipient(t *testing.T) {
	assert.Equal(t, NotificationRecipientSupplier, PartyKindSupplier.NotificationRecipient())
	assert.Equal(t, NotificationRecipientSourcingAgent, PartyKindSourcingAgent.NotificationRecipient())
}
