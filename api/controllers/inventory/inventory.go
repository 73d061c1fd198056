package inventory

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	internalinventory "github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

const (
	maxNotesLength     = 1000
	defaultLedgerLimit = 100
	maxLedgerLimit     = 1000
)

type setQuantityRequest struct {
	Quantity *int   `json:"quantity" validate:"required,min=0"`
	Notes    string `json:"notes" validate:"max=1000"`
}

type bulkItemRequest struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  *int       `json:"quantity" validate:"required,min=0"`
}

type bulkRequest struct {
	Updates []bulkItemRequest `json:"updates" validate:"required,min=1,max=500,dive"`
	Notes   string            `json:"notes" validate:"max=1000"`
}

type adjustmentRequest struct {
	ProductID  uuid.UUID  `json:"product_id"`
	VariantID  *uuid.UUID `json:"variant_id"`
	Delta      int        `json:"delta" validate:"required"`
	ChangeType string     `json:"change_type" validate:"required,oneof=adjustment return"`
	Notes      string     `json:"notes" validate:"max=1000"`
}

type bulkResponse struct {
	Entries   []models.InventoryLedgerEntry `json:"entries"`
	Requested int                           `json:"requested"`
	Applied   int                           `json:"applied"`
}

type ledgerResponse struct {
	Entries []models.InventoryLedgerEntry `json:"entries"`
	HasMore bool                          `json:"has_more"`
}

// SetProductQuantity overwrites product-level stock with a manual count.
func SetProductQuantity(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return setQuantity(svc, logg, "productId", internalinventory.ForProduct)
}

// SetVariantQuantity overwrites variant stock with a manual count.
func SetVariantQuantity(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return setQuantity(svc, logg, "variantId", internalinventory.ForVariant)
}

func setQuantity(svc internalinventory.Service, logg *logger.Logger, param string, target func(uuid.UUID) internalinventory.Target) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.ApplyManual(r.Context(), target(id), *payload.Quantity, act, validators.SanitizeString(payload.Notes, maxNotesLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// Bulk applies many absolute quantities. Targets the requester cannot update
// are skipped, so Applied may be lower than Requested.
func Bulk(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := make([]internalinventory.BulkUpdate, 0, len(payload.Updates))
		for _, item := range payload.Updates {
			updates = append(updates, internalinventory.BulkUpdate{
				Target:   internalinventory.Target{ProductID: item.ProductID, VariantID: item.VariantID},
				Quantity: *item.Quantity,
			})
		}

		entries, err := svc.BulkApply(r.Context(), updates, act, validators.SanitizeString(payload.Notes, maxNotesLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bulkResponse{
			Entries:   entries,
			Requested: len(updates),
			Applied:   len(entries),
		})
	}
}

// Adjust applies a signed delta, recorded as a return or an adjustment.
func Adjust(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		changeType, err := enums.ParseInventoryChangeType(payload.ChangeType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid change type"))
			return
		}

		target := internalinventory.Target{ProductID: payload.ProductID, VariantID: payload.VariantID}
		entry, err := svc.ApplyAdjustment(r.Context(), target, payload.Delta, changeType, act, validators.SanitizeString(payload.Notes, maxNotesLength))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// Ledger returns up to limit ledger entries for one product or variant.
// order=asc walks oldest first; the default is newest first.
func Ledger(svc internalinventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseQueryUUID(r, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if productID == nil && variantID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product_id or variant_id is required"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLedgerLimit, 1, maxLedgerLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		newestFirst := true
		switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order"))) {
		case "", "desc":
		case "asc":
			newestFirst = false
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order must be asc or desc"))
			return
		}

		target := internalinventory.Target{VariantID: variantID}
		if productID != nil {
			target.ProductID = *productID
		}

		resp := ledgerResponse{Entries: make([]models.InventoryLedgerEntry, 0, min(limit, defaultLedgerLimit))}
		for entry, err := range svc.QueryLog(r.Context(), target, act, newestFirst) {
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if len(resp.Entries) == limit {
				resp.HasMore = true
				break
			}
			resp.Entries = append(resp.Entries, entry)
		}
		responses.WriteSuccess(w, resp)
	}
}

// LowStock lists products and variants at or below the threshold. Suppliers
// and agents see only what they own.
func LowStock(svc internalinventory.Service, defaultThreshold int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		threshold, err := validators.ParseQueryInt(r, "threshold", defaultThreshold, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		levels, err := svc.LowStock(r.Context(), threshold, act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, levels)
	}
}
