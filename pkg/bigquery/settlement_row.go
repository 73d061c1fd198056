package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
)

// SettlementRow is one settlement ledger record in the warehouse table.
type SettlementRow struct {
	PaymentID      string
	Type           string
	Status         string
	Method         string
	Amount         string
	Currency       string
	PayeeKind      string
	PayeeID        string
	OrderID        string
	SubscriptionID string
	TransactionID  string
	CreatedAt      time.Time
	ExportedAt     time.Time
}

// NewSettlementRow flattens a ledger payment for export.
func NewSettlementRow(payment models.Payment, exportedAt time.Time) SettlementRow {
	row := SettlementRow{
		PaymentID:     payment.ID.String(),
		Type:          string(payment.Type),
		Status:        string(payment.Status),
		Method:        string(payment.Method),
		Amount:        payment.Amount.StringFixed(2),
		Currency:      payment.Currency,
		PayeeKind:     string(payment.Payee.Kind),
		PayeeID:       payment.Payee.ID.String(),
		TransactionID: payment.TransactionID,
		CreatedAt:     payment.CreatedAt.UTC(),
		ExportedAt:    exportedAt.UTC(),
	}
	if payment.OrderID != nil {
		row.OrderID = payment.OrderID.String()
	}
	if payment.SubscriptionID != nil {
		row.SubscriptionID = payment.SubscriptionID.String()
	}
	return row
}

// Save implements bigquery.ValueSaver. The payment id doubles as the insert
// id so overlapping export windows are deduplicated by the streaming API.
func (r SettlementRow) Save() (map[string]bigquery.Value, string, error) {
	values := map[string]bigquery.Value{
		"payment_id":      r.PaymentID,
		"type":            r.Type,
		"status":          r.Status,
		"method":          r.Method,
		"amount":          r.Amount,
		"currency":        r.Currency,
		"payee_kind":      r.PayeeKind,
		"payee_id":        r.PayeeID,
		"transaction_id":  r.TransactionID,
		"created_at":      r.CreatedAt,
		"exported_at":     r.ExportedAt,
		"order_id":        nil,
		"subscription_id": nil,
	}
	if r.OrderID != "" {
		values["order_id"] = r.OrderID
	}
	if r.SubscriptionID != "" {
		values["subscription_id"] = r.SubscriptionID
	}
	return values, r.PaymentID, nil
}
