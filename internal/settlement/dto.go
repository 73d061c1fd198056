package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

// DateRange is a half-open [From, To) window.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// LastDays returns the window ending at now and spanning the given number of days.
func LastDays(now time.Time, days int) DateRange {
	now = now.UTC()
	return DateRange{From: now.AddDate(0, 0, -days), To: now}
}

// SubscriptionCharge describes one billing period of a subscription plan.
type SubscriptionCharge struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	Payee          types.PartyRef  `json:"payee"`
	PlanName       string          `json:"plan_name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
}

// DailyTotal buckets completed commission by UTC calendar day.
type DailyTotal struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// History summarizes completed commission for one payee.
type History struct {
	Payee   types.PartyRef   `json:"payee"`
	Range   DateRange        `json:"range"`
	Total   decimal.Decimal  `json:"total"`
	Count   int              `json:"count"`
	Daily   []DailyTotal     `json:"daily"`
	Records []models.Payment `json:"records"`
}
