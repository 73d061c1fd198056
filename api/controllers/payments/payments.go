package payments

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	"github.com/angelmondragon/supplyhub-backend/internal/settlement"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

const defaultHistoryDays = 30

type payeeRequest struct {
	Kind string    `json:"kind" validate:"required,oneof=supplier sourcing_agent"`
	ID   uuid.UUID `json:"id" validate:"required"`
}

type subscriptionChargeRequest struct {
	SubscriptionID uuid.UUID       `json:"subscription_id" validate:"required"`
	Payee          payeeRequest    `json:"payee"`
	PlanName       string          `json:"plan_name" validate:"required,max=255"`
	Amount         decimal.Decimal `json:"amount" validate:"positive_money"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	PeriodStart    time.Time       `json:"period_start" validate:"required"`
	PeriodEnd      time.Time       `json:"period_end"`
}

// History returns completed commission for a payee over a date range.
// Suppliers and sourcing agents default to their own party; admins must name one.
func History(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payee, err := resolvePayee(r, act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rng, err := parseRange(r, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), payee, rng, act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// RecordSubscriptionCharge books one subscription billing period. Replaying a
// period returns the row recorded the first time.
func RecordSubscriptionCharge(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !act.IsAdmin() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
			return
		}

		var payload subscriptionChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.RecordSubscriptionCharge(r.Context(), settlement.SubscriptionCharge{
			SubscriptionID: payload.SubscriptionID,
			Payee:          types.PartyRef{Kind: enums.PartyKind(payload.Payee.Kind), ID: payload.Payee.ID},
			PlanName:       strings.TrimSpace(payload.PlanName),
			Amount:         payload.Amount,
			Currency:       payload.Currency,
			PeriodStart:    payload.PeriodStart,
			PeriodEnd:      payload.PeriodEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func resolvePayee(r *http.Request, act actor.Actor) (types.PartyRef, error) {
	kind := enums.PartyKind(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("payee_kind"))))
	id, err := validators.ParseQueryUUID(r, "payee_id")
	if err != nil {
		return types.PartyRef{}, err
	}

	if kind == "" {
		switch act.Role {
		case enums.ActorRoleSupplier:
			kind = enums.PartyKindSupplier
		case enums.ActorRoleSourcingAgent:
			kind = enums.PartyKindSourcingAgent
		}
	}
	if id == nil && act.PartyID != uuid.Nil && !act.Privileged() {
		partyID := act.PartyID
		id = &partyID
	}

	if kind == "" || id == nil {
		return types.PartyRef{}, pkgerrors.New(pkgerrors.CodeValidation, "payee_kind and payee_id are required")
	}
	if !kind.IsValid() {
		return types.PartyRef{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payee_kind").
			WithDetails(map[string]any{"payee_kind": kind})
	}
	return types.PartyRef{Kind: kind, ID: *id}, nil
}

func parseRange(r *http.Request, now time.Time) (settlement.DateRange, error) {
	rng := settlement.LastDays(now, defaultHistoryDays)
	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return rng, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return rng, err
	}
	if !to.IsZero() {
		rng.To = to.UTC()
		if from.IsZero() {
			rng.From = rng.To.AddDate(0, 0, -defaultHistoryDays)
		}
	}
	if !from.IsZero() {
		rng.From = from.UTC()
	}
	return rng, nil
}
