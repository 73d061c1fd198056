package enums

import "fmt"

// PaymentMethod records how a ledger payment moves money.
type PaymentMethod string

const (
	// PaymentMethodInternal is a book entry settled on the platform ledger.
	PaymentMethodInternal PaymentMethod = "internal"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodACH      PaymentMethod = "ach"
	PaymentMethodPayout   PaymentMethod = "payout"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodInternal,
	PaymentMethodCard,
	PaymentMethodACH,
	PaymentMethodPayout,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
