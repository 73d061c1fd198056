package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/supplyhub-backend/api/middleware"
	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/api/validators"
	internalorders "github.com/angelmondragon/supplyhub-backend/internal/orders"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

const maxNoteLength = 2000

type itemRequest struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" validate:"min=1"`
}

type createOrderRequest struct {
	DropshipperID   *uuid.UUID            `json:"dropshipper_id"`
	SupplierID      *uuid.UUID            `json:"supplier_id"`
	ExternalOrderID *string               `json:"external_order_id" validate:"omitempty,max=255"`
	CustomerName    string                `json:"customer_name" validate:"required,max=255"`
	CustomerEmail   string                `json:"customer_email" validate:"required,email"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	Items           []itemRequest         `json:"items" validate:"required,min=1,dive"`
	ShippingCost    decimal.Decimal       `json:"shipping_cost" validate:"money"`
	Tax             decimal.Decimal       `json:"tax" validate:"money"`
	Currency        string                `json:"currency" validate:"omitempty,len=3"`
	Notes           *string               `json:"notes" validate:"omitempty,max=2000"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

type shippingRequest struct {
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=255"`
	TrackingURL    *string `json:"tracking_url" validate:"omitempty,url,max=2048"`
	ShippingMethod *string `json:"shipping_method" validate:"omitempty,max=255"`
}

// Create records a manual order. Dropshippers create orders for themselves;
// admins must name the dropshipper. A repeated external order id returns the
// existing order with 200 instead of 201.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dropshipperID := act.PartyID
		if payload.DropshipperID != nil {
			dropshipperID = *payload.DropshipperID
		}

		items := make([]internalorders.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, internalorders.ItemInput{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Quantity:  item.Quantity,
			})
		}

		result, err := svc.CreateOrder(r.Context(), internalorders.CreateOrderInput{
			Requester:       act,
			DropshipperID:   dropshipperID,
			SupplierID:      payload.SupplierID,
			ExternalOrderID: trimmed(payload.ExternalOrderID),
			Source:          enums.OrderSourceManual,
			CustomerName:    payload.CustomerName,
			CustomerEmail:   payload.CustomerEmail,
			ShippingAddress: payload.ShippingAddress,
			Items:           items,
			ShippingCost:    payload.ShippingCost,
			Tax:             payload.Tax,
			Currency:        payload.Currency,
			Notes:           trimmed(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// List pages the orders visible to the requester, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters internalorders.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}

		list, err := svc.ListOrders(r.Context(), act, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order with its items and status history.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, act)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func TransitionStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.TransitionStatus(r.Context(), internalorders.TransitionInput{
			OrderID:   orderID,
			Status:    payload.Status,
			Note:      validators.SanitizeString(payload.Note, maxNoteLength),
			Requester: act,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AttachShipping(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		act, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AttachShipping(r.Context(), internalorders.ShippingInput{
			OrderID: orderID,
			Patch: internalorders.ShippingPatch{
				TrackingNumber: payload.TrackingNumber,
				TrackingURL:    payload.TrackingURL,
				ShippingMethod: payload.ShippingMethod,
			},
			Requester: act,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
