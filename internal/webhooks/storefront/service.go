package storefrontwebhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/supplyhub-backend/internal/catalog"
	"github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/internal/orders"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Storefront-Hmac-Sha256"

// ShopDomainHeader names the shop that sent the webhook.
const ShopDomainHeader = "X-Storefront-Shop-Domain"

type catalogResolver interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductSnapshot, error)
	ConnectionByShop(ctx context.Context, shopDomain string) (*models.StorefrontConnection, error)
	ResolveListing(ctx context.Context, connectionID uuid.UUID, externalProductID string, externalVariantID *string) (*catalog.Listing, error)
}

type orderCreator interface {
	CreateOrder(ctx context.Context, input orders.CreateOrderInput) (*orders.Result, error)
	FindByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error)
}

type inventorySyncer interface {
	ApplySync(ctx context.Context, target inventory.Target, newQuantity int, source string) (*models.InventoryLedgerEntry, error)
}

type ServiceParams struct {
	Catalog   catalogResolver
	Orders    orderCreator
	Inventory inventorySyncer
	Logger    *logger.Logger
	Metrics   *metrics.LedgerMetrics
}

// Service normalizes storefront webhooks into order and inventory operations.
type Service struct {
	catalog   catalogResolver
	orders    orderCreator
	inventory inventorySyncer
	logg      *logger.Logger
	metrics   *metrics.LedgerMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		catalog:   params.Catalog,
		orders:    params.Orders,
		inventory: params.Inventory,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Authenticate verifies the webhook signature against the shop's secret.
func (s *Service) Authenticate(ctx context.Context, shopDomain string, body []byte, signature string) error {
	conn, err := s.catalog.ConnectionByShop(ctx, shopDomain)
	if err != nil {
		if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown storefront")
		}
		return err
	}
	if !ValidSignature(body, conn.WebhookSecret, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid storefront signature")
	}
	return nil
}

// ValidSignature compares header with the base64 HMAC-SHA256 of payload.
func ValidSignature(payload []byte, secret, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(header))
}

// Sign returns the signature a storefront would send for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Ingest turns a storefront order webhook into an order. A repeated delivery
// returns the order created by the first one with Created=false.
func (s *Service) Ingest(ctx context.Context, raw []byte, shopDomain string) (*orders.Result, error) {
	result, err := s.ingest(ctx, raw, shopDomain)
	switch {
	case err != nil:
		s.metrics.WebhookIngested("rejected")
	case result.Created:
		s.metrics.WebhookIngested("created")
	default:
		s.metrics.WebhookIngested("duplicate")
	}
	return result, err
}

func (s *Service) ingest(ctx context.Context, raw []byte, shopDomain string) (*orders.Result, error) {
	var payload OrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidPayload, err, "malformed storefront order payload")
	}
	if payload.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "storefront order id missing")
	}

	conn, err := s.catalog.ConnectionByShop(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"shop_domain":       conn.ShopDomain,
		"external_order_id": payload.ID.String(),
		"dropshipper_id":    conn.DropshipperID.String(),
	})
	externalID := externalOrderID(conn.ShopDomain, payload.ID)

	existing, err := s.orders.FindByExternalID(ctx, externalID)
	switch {
	case err == nil:
		s.logg.Info(ctx, "storefront order already ingested")
		return &orders.Result{Order: existing}, nil
	case pkgerrors.As(err).Code() != pkgerrors.CodeNotFound:
		return nil, err
	}

	if err := payload.validateAmounts(); err != nil {
		return nil, err
	}
	email := payload.customerEmail()
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "storefront order has no customer email")
	}

	items, supplierID, err := s.resolveLineItems(ctx, conn.ID, payload.LineItems)
	if err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(payload.Currency)
	if currency == "" {
		currency = conn.Currency
	}

	result, err := s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		Requester:       actor.System(),
		DropshipperID:   conn.DropshipperID,
		SupplierID:      &supplierID,
		ExternalOrderID: &externalID,
		Source:          enums.OrderSourceStorefront,
		CustomerName:    payload.customerName(),
		CustomerEmail:   email,
		ShippingAddress: payload.ShippingAddress.toShippingAddress(),
		Items:           items,
		ShippingCost:    payload.shippingTotal(),
		Tax:             payload.tax(),
		Currency:        currency,
		Notes:           optional(payload.Note),
	})
	if err != nil {
		return nil, err
	}
	if result.Created {
		s.logg.Info(ctx, "storefront order ingested")
	} else {
		s.logg.Info(ctx, "storefront order already ingested")
	}
	return result, nil
}

// resolveLineItems maps storefront lines onto catalog products. Unmapped lines
// are dropped; at least one line must resolve to a supplier-owned product.
func (s *Service) resolveLineItems(ctx context.Context, connectionID uuid.UUID, lines []LineItemPayload) ([]orders.ItemInput, uuid.UUID, error) {
	items := make([]orders.ItemInput, 0, len(lines))
	var supplierID uuid.UUID
	for i, line := range lines {
		lineCtx := s.logg.WithFields(ctx, map[string]any{
			"line":                i,
			"external_product_id": line.ProductID.String(),
			"external_variant_id": line.VariantID.String(),
		})
		if line.ProductID == "" || line.Quantity <= 0 {
			s.logg.Warn(lineCtx, "storefront line item dropped: missing product or quantity")
			continue
		}
		listing, err := s.catalog.ResolveListing(ctx, connectionID, line.ProductID.String(), line.VariantID.ptr())
		if err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
				s.logg.Warn(lineCtx, "storefront line item dropped: listing not mapped")
				continue
			}
			return nil, uuid.Nil, err
		}
		product, err := s.catalog.GetProduct(ctx, listing.ProductID)
		if err != nil {
			if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
				s.logg.Warn(lineCtx, "storefront line item dropped: mapped product missing")
				continue
			}
			return nil, uuid.Nil, err
		}
		if supplierID == uuid.Nil && product.SupplierID != nil {
			supplierID = *product.SupplierID
		}
		items = append(items, orders.ItemInput{
			ProductID:         listing.ProductID,
			VariantID:         listing.VariantID,
			Quantity:          line.Quantity,
			ExternalProductID: line.ProductID.ptr(),
			ExternalVariantID: line.VariantID.ptr(),
		})
	}
	if len(items) == 0 {
		return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "no storefront line items could be resolved")
	}
	if supplierID == uuid.Nil {
		return nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "no supplier-owned product in storefront order")
	}
	return items, supplierID, nil
}

// SyncInventory applies a storefront inventory-level update to the mapped product or variant.
func (s *Service) SyncInventory(ctx context.Context, raw []byte, shopDomain string) (*models.InventoryLedgerEntry, error) {
	var payload InventoryLevelPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidPayload, err, "malformed storefront inventory payload")
	}
	if payload.ProductID == "" || payload.Available == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "storefront inventory payload requires product_id and available")
	}

	conn, err := s.catalog.ConnectionByShop(ctx, shopDomain)
	if err != nil {
		return nil, err
	}
	listing, err := s.catalog.ResolveListing(ctx, conn.ID, payload.ProductID.String(), payload.VariantID.ptr())
	if err != nil {
		return nil, err
	}

	target := inventory.ForProduct(listing.ProductID)
	if listing.VariantID != nil {
		target = inventory.Target{ProductID: listing.ProductID, VariantID: listing.VariantID}
	}
	entry, err := s.inventory.ApplySync(ctx, target, *payload.Available, "storefront:"+conn.ShopDomain)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "shop_domain", conn.ShopDomain), "storefront inventory synced")
	return entry, nil
}

// externalOrderID namespaces storefront order ids by shop so that two shops
// sending the same numeric id do not collide.
func externalOrderID(shopDomain string, id ExternalID) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(shopDomain), id)
}
