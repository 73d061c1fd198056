package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/supplyhub-backend/api/responses"
	"github.com/angelmondragon/supplyhub-backend/internal/orders"
	storefrontwebhook "github.com/angelmondragon/supplyhub-backend/internal/webhooks/storefront"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

// StorefrontService is the webhook surface the handlers depend on.
type StorefrontService interface {
	Authenticate(ctx context.Context, shopDomain string, body []byte, signature string) error
	Ingest(ctx context.Context, raw []byte, shopDomain string) (*orders.Result, error)
	SyncInventory(ctx context.Context, raw []byte, shopDomain string) (*models.InventoryLedgerEntry, error)
}

// Options controls signature enforcement.
type Options struct {
	RequireSignature bool
}

// StorefrontOrders ingests an order webhook. The first delivery answers 201,
// replays answer 200 with the same order.
func StorefrontOrders(svc StorefrontService, opts Options, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		payload, shop, ok := readDelivery(w, r, svc, opts, logg)
		if !ok {
			return
		}

		result, err := svc.Ingest(ctx, payload, shop)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// StorefrontInventory applies an inventory-level webhook.
func StorefrontInventory(svc StorefrontService, opts Options, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		payload, shop, ok := readDelivery(w, r, svc, opts, logg)
		if !ok {
			return
		}

		entry, err := svc.SyncInventory(ctx, payload, shop)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func readDelivery(w http.ResponseWriter, r *http.Request, svc StorefrontService, opts Options, logg *logger.Logger) ([]byte, string, bool) {
	ctx := r.Context()
	if svc == nil {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
		return nil, "", false
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidPayload, "webhook body too large").
				WithDetails(map[string]any{"limit_bytes": tooLarge.Limit}))
			return nil, "", false
		}
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidPayload, err, "read request body"))
		return nil, "", false
	}

	shop := strings.ToLower(strings.TrimSpace(r.Header.Get(storefrontwebhook.ShopDomainHeader)))
	if shop == "" {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shop domain header missing").
			WithDetails(map[string]any{"header": storefrontwebhook.ShopDomainHeader}))
		return nil, "", false
	}
	if logg != nil {
		ctx = logg.WithField(ctx, "shop_domain", shop)
	}

	if opts.RequireSignature {
		if err := svc.Authenticate(ctx, shop, payload, r.Header.Get(storefrontwebhook.SignatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return nil, "", false
		}
	}
	return payload, shop, true
}
