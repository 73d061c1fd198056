package enums

import "fmt"

// NotificationRecipient identifies which party an event is addressed to.
type NotificationRecipient string

const (
	NotificationRecipientSupplier      NotificationRecipient = "supplier"
	NotificationRecipientDropshipper   NotificationRecipient = "dropshipper"
	NotificationRecipientCustomer      NotificationRecipient = "customer"
	NotificationRecipientSourcingAgent NotificationRecipient = "sourcing_agent"
	NotificationRecipientAdmin         NotificationRecipient = "admin"
)

var validNotificationRecipients = []NotificationRecipient{
	NotificationRecipientSupplier,
	NotificationRecipientDropshipper,
	NotificationRecipientCustomer,
	NotificationRecipientSourcingAgent,
	NotificationRecipientAdmin,
}

// String implements fmt.Stringer.
func (n NotificationRecipient) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationRecipient.
func (n NotificationRecipient) IsValid() bool {
	for _, candidate := range validNotificationRecipients {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationRecipient converts raw input into a NotificationRecipient.
func ParseNotificationRecipient(value string) (NotificationRecipient, error) {
	for _, candidate := range validNotificationRecipients {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification recipient %q", value)
}
