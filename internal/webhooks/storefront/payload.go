package storefrontwebhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// ExternalID accepts storefront ids sent either as JSON strings or numbers.
type ExternalID string

func (id *ExternalID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("external id: %w", err)
		}
		*id = ExternalID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("external id: %w", err)
	}
	*id = ExternalID(n.String())
	return nil
}

func (id ExternalID) String() string {
	return string(id)
}

func (id ExternalID) ptr() *string {
	if id == "" {
		return nil
	}
	value := string(id)
	return &value
}

// OrderPayload is the storefront order-created webhook body.
type OrderPayload struct {
	ID              ExternalID            `json:"id"`
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	Currency        string                `json:"currency"`
	Note            string                `json:"note"`
	Customer        *CustomerPayload      `json:"customer"`
	ShippingAddress *AddressPayload       `json:"shipping_address"`
	LineItems       []LineItemPayload     `json:"line_items"`
	ShippingLines   []ShippingLinePayload `json:"shipping_lines"`
	TotalTax        decimal.NullDecimal   `json:"total_tax"`
}

type CustomerPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type AddressPayload struct {
	Name         string `json:"name"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
	Phone        string `json:"phone"`
}

type LineItemPayload struct {
	ProductID ExternalID `json:"product_id"`
	VariantID ExternalID `json:"variant_id"`
	Quantity  int        `json:"quantity"`
	SKU       string     `json:"sku"`
	Title     string     `json:"title"`
}

type ShippingLinePayload struct {
	Title string              `json:"title"`
	Price decimal.NullDecimal `json:"price"`
}

// InventoryLevelPayload is the storefront inventory-level webhook body.
type InventoryLevelPayload struct {
	ProductID ExternalID `json:"product_id"`
	VariantID ExternalID `json:"variant_id"`
	Available *int       `json:"available"`
}

func (p OrderPayload) customerEmail() string {
	email := strings.TrimSpace(p.Email)
	if email == "" && p.Customer != nil {
		email = strings.TrimSpace(p.Customer.Email)
	}
	return email
}

func (p OrderPayload) customerName() string {
	if p.ShippingAddress != nil {
		if name := p.ShippingAddress.fullName(); name != "" {
			return name
		}
	}
	if p.Customer != nil {
		if name := strings.TrimSpace(p.Customer.FirstName + " " + p.Customer.LastName); name != "" {
			return name
		}
	}
	return p.customerEmail()
}

func (p OrderPayload) shippingTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.ShippingLines {
		if line.Price.Valid {
			total = total.Add(line.Price.Decimal)
		}
	}
	return total
}

func (p OrderPayload) validateAmounts() error {
	for _, line := range p.ShippingLines {
		if line.Price.Valid && line.Price.Decimal.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInvalidPayload, "storefront shipping line price is negative")
		}
	}
	if p.TotalTax.Valid && p.TotalTax.Decimal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidPayload, "storefront total tax is negative")
	}
	return nil
}

func (p OrderPayload) tax() decimal.Decimal {
	if p.TotalTax.Valid {
		return p.TotalTax.Decimal
	}
	return decimal.Zero
}

func (a *AddressPayload) fullName() string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// toShippingAddress reshapes the storefront address into the order address.
func (a *AddressPayload) toShippingAddress() types.ShippingAddress {
	if a == nil {
		return types.ShippingAddress{}
	}
	state := a.ProvinceCode
	if strings.TrimSpace(state) == "" {
		state = a.Province
	}
	country := a.CountryCode
	if strings.TrimSpace(country) == "" {
		country = a.Country
	}
	return types.ShippingAddress{
		Name:       a.fullName(),
		Company:    optional(a.Company),
		Line1:      a.Address1,
		Line2:      optional(a.Address2),
		City:       a.City,
		State:      state,
		PostalCode: a.Zip,
		Country:    country,
		Phone:      optional(a.Phone),
	}.Normalize()
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
