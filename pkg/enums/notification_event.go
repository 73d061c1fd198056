package enums

import "fmt"

// NotificationEventType names the events delivered through the notification dispatcher.
type NotificationEventType string

const (
	NotificationEventTypeOrderCreated         NotificationEventType = "order.created"
	NotificationEventTypeOrderStatusChanged   NotificationEventType = "order.status_changed"
	NotificationEventTypeOrderShippingUpdated NotificationEventType = "order.shipping_updated"
	NotificationEventTypeInventoryLowStock    NotificationEventType = "inventory.low_stock"
)

var validNotificationEventTypes = []NotificationEventType{
	NotificationEventTypeOrderCreated,
	NotificationEventTypeOrderStatusChanged,
	NotificationEventTypeOrderShippingUpdated,
	NotificationEventTypeInventoryLowStock,
}

// String implements fmt.Stringer.
func (n NotificationEventType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationEventType.
func (n NotificationEventType) IsValid() bool {
	for _, candidate := range validNotificationEventTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEventType converts raw input into a NotificationEventType.
func ParseNotificationEventType(value string) (NotificationEventType, error) {
	for _, candidate := range validNotificationEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event type %q", value)
}
