package types

import (
	"fmt"
	"strings"
)

// ShippingAddress is the canonical delivery address stored on an order.
type ShippingAddress struct {
	Name       string  `json:"name,omitempty"`
	Company    *string `json:"company,omitempty"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state,omitempty"`
	PostalCode string  `json:"postal_code,omitempty"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate ensures the minimum deliverable fields are present.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Line1) == "" {
		return fmt.Errorf("address: missing line1")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.Country) == "" {
		return fmt.Errorf("address: missing country")
	}
	return nil
}

// Normalize trims whitespace and upper-cases the country code.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Name = strings.TrimSpace(a.Name)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.Company = trimOptional(a.Company)
	a.Line2 = trimOptional(a.Line2)
	a.Phone = trimOptional(a.Phone)
	return a
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
