package enums

import "fmt"

// PartyKind discriminates the owner of a product or the payee of a settlement record.
type PartyKind string

const (
	PartyKindSupplier      PartyKind = "supplier"
	PartyKindSourcingAgent PartyKind = "sourcing_agent"
)

var validPartyKinds = []PartyKind{
	PartyKindSupplier,
	PartyKindSourcingAgent,
}

// String implements fmt.Stringer.
func (p PartyKind) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PartyKind.
func (p PartyKind) IsValid() bool {
	for _, candidate := range validPartyKinds {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePartyKind converts raw input into a PartyKind.
func ParsePartyKind(value string) (PartyKind, error) {
	for _, candidate := range validPartyKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid party kind %q", value)
}

// NotificationRecipient maps the party kind onto the matching recipient role.
func (p PartyKind) NotificationRecipient() NotificationRecipient {
	if p == PartyKindSourcingAgent {
		return NotificationRecipientSourcingAgent
	}
	return NotificationRecipientSupplier
}
