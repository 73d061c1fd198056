package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/catalog"
	"github.com/angelmondragon/supplyhub-backend/internal/commission"
	"github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/locks"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
)

const (
	defaultOrderNumberAttempts = 5
	defaultCurrency            = "USD"

	externalOrderConstraint = "ux_orders_external_order_id"
	externalOrderColumn     = "orders.external_order_id"
)

var inputValidator = validator.New()

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type catalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductSnapshot, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*catalog.VariantSnapshot, error)
}

type inventoryApplier interface {
	ApplyOrder(ctx context.Context, lines []inventory.OrderLine, orderID uuid.UUID, act actor.Actor) ([]models.InventoryLedgerEntry, error)
}

type settlementRecorder interface {
	RecordCommission(ctx context.Context, order *models.Order) ([]models.Payment, error)
}

// Service drives the order lifecycle from creation through settlement.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Result, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, requester actor.Actor) (*models.Order, error)
	FindByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error)
	ListOrders(ctx context.Context, requester actor.Actor, params pagination.Params, filters ListFilters) (*OrderList, error)
	TransitionStatus(ctx context.Context, input TransitionInput) (*Result, error)
	AttachShipping(ctx context.Context, input ShippingInput) (*Result, error)
}

// Options tunes order creation.
type Options struct {
	OrderNumberAttempts int
	DefaultCurrency     string
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Locker     locks.Locker
	Catalog    catalogReader
	Inventory  inventoryApplier
	Settlement settlementRecorder
	Notifier   notifications.Publisher
	Calculator commission.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.LedgerMetrics
	Options    Options
}

type service struct {
	repo       Repository
	tx         txRunner
	locker     locks.Locker
	catalog    catalogReader
	inventory  inventoryApplier
	settlement settlementRecorder
	notifier   notifications.Publisher
	calculator commission.Calculator
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	opts       Options
	now        func() time.Time
	numbers    func(time.Time) (string, error)
}

// NewService builds the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = notifications.NopPublisher{}
	}
	opts := params.Options
	if opts.OrderNumberAttempts <= 0 {
		opts.OrderNumberAttempts = defaultOrderNumberAttempts
	}
	opts.DefaultCurrency = strings.ToUpper(strings.TrimSpace(opts.DefaultCurrency))
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = defaultCurrency
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		locker:     params.Locker,
		catalog:    params.Catalog,
		inventory:  params.Inventory,
		settlement: params.Settlement,
		notifier:   notifier,
		calculator: params.Calculator,
		logg:       params.Logger,
		metrics:    params.Metrics,
		opts:       opts,
		now:        time.Now,
		numbers:    GenerateOrderNumber,
	}, nil
}

// CreateOrder prices and persists a new order, then applies inventory and
// publishes notifications on a best-effort basis. An order that already exists
// for the external order id is returned unchanged with Created=false.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Result, error) {
	input, err := s.normalizeCreate(input)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"dropshipper_id": input.DropshipperID.String(),
		"source":         input.Source.String(),
	})

	if input.ExternalOrderID != nil {
		ctx = s.logg.WithField(ctx, "external_order_id", *input.ExternalOrderID)
		release, err := s.locker.Acquire(ctx, "order:external:"+*input.ExternalOrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire external order lock")
		}
		defer release()

		existing, err := s.repo.FindByExternalID(ctx, *input.ExternalOrderID)
		switch {
		case err == nil:
			s.logg.Info(ctx, "order already exists for external id")
			return &Result{Order: existing}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup external order")
		}
	}

	items, lines, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	supplierID, err := inferSupplier(input.SupplierID, items)
	if err != nil {
		return nil, err
	}

	breakdown := s.calculator.Calculate(lines)
	total := breakdown.Subtotal.Add(input.ShippingCost).Add(input.Tax)
	payout := commission.Payout(total, breakdown)

	orderNumber, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:                            uuid.New(),
		OrderNumber:                   orderNumber,
		DropshipperID:                 input.DropshipperID,
		SupplierID:                    supplierID,
		ExternalOrderID:               input.ExternalOrderID,
		Source:                        input.Source,
		CustomerName:                  input.CustomerName,
		CustomerEmail:                 input.CustomerEmail,
		ShippingAddress:               input.ShippingAddress,
		Subtotal:                      breakdown.Subtotal,
		ShippingCost:                  input.ShippingCost,
		Tax:                           input.Tax,
		Total:                         total,
		CommissionAmount:              breakdown.Commission,
		SourcingAgentCommissionAmount: breakdown.AgentCommission,
		PayoutAmount:                  payout,
		Currency:                      input.Currency,
		Status:                        enums.OrderStatusPending,
		PaymentStatus:                 enums.OrderPaymentStatusPending,
		Notes:                         input.Notes,
		Version:                       1,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = order.ID
		items[i].CreatedAt = now
	}
	pending := &models.OrderStatusEntry{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Sequence:    1,
		Status:      enums.OrderStatusPending,
		ActorUserID: input.Requester.UserRef(),
		CreatedAt:   now,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		if err := repo.AppendHistory(ctx, pending); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order history")
		}
		return nil
	})
	if err != nil {
		if input.ExternalOrderID != nil && isExternalDuplicate(err) {
			existing, findErr := s.repo.FindByExternalID(ctx, *input.ExternalOrderID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload external order")
			}
			s.logg.Info(ctx, "concurrent duplicate resolved by unique index")
			return &Result{Order: existing}, nil
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.metrics.OrderCreated(order.Source.String())

	result := &Result{Created: true}
	if _, err := s.inventory.ApplyOrder(ctx, inventoryLines(items), order.ID, input.Requester); err != nil {
		for _, lineErr := range multierr.Errors(err) {
			result.Warnings = append(result.Warnings, "inventory not applied: "+lineErr.Error())
			s.metrics.OrderWarning(metrics.WarningInventory)
		}
		s.logg.Warn(ctx, "order inventory partially applied: "+err.Error())
	}
	if payout.IsNegative() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("payout amount is negative (%s)", payout.StringFixed(2)))
		s.metrics.OrderWarning(metrics.WarningNegativePayout)
		s.logg.Warn(ctx, "order payout is negative")
	}

	stored, err := s.repo.FindOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	result.Order = stored

	s.notify(ctx, enums.NotificationEventTypeOrderCreated, stored, nil,
		enums.NotificationRecipientSupplier,
		enums.NotificationRecipientDropshipper,
		enums.NotificationRecipientCustomer,
	)
	s.logg.Info(ctx, "order created")
	return result, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, requester actor.Actor) (*models.Order, error) {
	if err := requester.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid requester")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	if !canView(requester, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "requester cannot view this order")
	}
	return order, nil
}

// FindByExternalID returns the order ingested under a storefront order id.
func (s *service) FindByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error) {
	externalOrderID = strings.TrimSpace(externalOrderID)
	if externalOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external order id required")
	}
	order, err := s.repo.FindByExternalID(ctx, externalOrderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "lookup external order")
	}
	return order, nil
}

// ListOrders pages orders visible to the requester, newest first.
func (s *service) ListOrders(ctx context.Context, requester actor.Actor, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if err := requester.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid requester")
	}
	scope, err := listScope(requester)
	if err != nil {
		return nil, err
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListOrders(ctx, scope, filters.Status, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// TransitionStatus moves an order to a new status under the per-order lock.
// Entering a terminal status finalizes settlement before the lock is released.
func (s *service) TransitionStatus(ctx context.Context, input TransitionInput) (*Result, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	if err := input.Requester.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid requester")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	release, err := s.locker.Acquire(ctx, locks.Key("order", input.OrderID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire order lock")
	}
	defer release()

	return s.transitionLocked(ctx, input.OrderID, status, input.Note, input.Requester)
}

// AttachShipping applies the non-empty fields of the patch. A tracking number
// on a pending or processing order also moves it to shipped.
func (s *service) AttachShipping(ctx context.Context, input ShippingInput) (*Result, error) {
	if err := input.Requester.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid requester")
	}
	updates := input.Patch.updates()
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping patch has no fields to set")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())

	release, err := s.locker.Acquire(ctx, locks.Key("order", input.OrderID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire order lock")
	}
	defer release()

	var current *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		if !canManage(input.Requester, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "requester cannot update this order")
		}
		updates["updated_at"] = s.now().UTC()
		if err := repo.UpdateOrder(ctx, order.ID, order.Version, updates); err != nil {
			return versionConflictOr(err, "update shipping")
		}
		current = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if _, ok := updates["tracking_number"]; ok && current.Status.AllowsAutoShip() {
		shipped, err := s.transitionLocked(ctx, current.ID, enums.OrderStatusShipped, "tracking number attached", input.Requester)
		if err != nil {
			return nil, err
		}
		result.Warnings = shipped.Warnings
	}

	stored, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	result.Order = stored

	s.notify(ctx, enums.NotificationEventTypeOrderShippingUpdated, stored, shippingAttributes(stored),
		enums.NotificationRecipientDropshipper,
		enums.NotificationRecipientCustomer,
	)
	s.logg.Info(ctx, "order shipping updated")
	return result, nil
}

// transitionLocked expects the caller to hold the order lock.
func (s *service) transitionLocked(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, note string, requester actor.Actor) (*Result, error) {
	var previous enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		if !canManage(requester, order) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "requester cannot change this order's status")
		}
		previous = order.Status

		now := s.now().UTC()
		updates := map[string]any{"status": status, "updated_at": now}
		switch status {
		case enums.OrderStatusDelivered:
			updates["payment_status"] = enums.OrderPaymentStatusPaid
		case enums.OrderStatusRefunded:
			updates["payment_status"] = enums.OrderPaymentStatusRefunded
		}
		if err := repo.UpdateOrder(ctx, order.ID, order.Version, updates); err != nil {
			return versionConflictOr(err, "update order status")
		}

		sequence, err := repo.NextSequence(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "next history sequence")
		}
		entry := &models.OrderStatusEntry{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Sequence:    sequence,
			Status:      status,
			Note:        optionalString(note),
			ActorUserID: requester.UserRef(),
			CreatedAt:   now,
		}
		if err := repo.AppendHistory(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"from_status": previous.String(),
		"to_status":   status.String(),
	})
	s.metrics.OrderTransitioned(status.String())

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	result := &Result{}
	if status.IsTerminal() {
		if warning := s.settle(ctx, order); warning != "" {
			result.Warnings = append(result.Warnings, warning)
		} else if order, err = s.repo.FindOrder(ctx, orderID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
	}
	result.Order = order

	s.notify(ctx, enums.NotificationEventTypeOrderStatusChanged, order, map[string]string{"previous_status": previous.String()},
		enums.NotificationRecipientSupplier,
		enums.NotificationRecipientDropshipper,
		enums.NotificationRecipientCustomer,
	)
	s.logg.Info(ctx, "order status changed")
	return result, nil
}

// settle records commission rows for a terminal order and stamps settled_at.
// Failures are returned as a warning; the transition itself stands.
func (s *service) settle(ctx context.Context, order *models.Order) string {
	rows, err := s.settlement.RecordCommission(ctx, order)
	if err != nil {
		s.metrics.OrderWarning(metrics.WarningSettlement)
		s.logg.Error(ctx, "settlement finalization failed", err)
		return "settlement not recorded: " + err.Error()
	}
	if err := s.repo.MarkSettled(ctx, order.ID, s.now().UTC()); err != nil {
		s.metrics.OrderWarning(metrics.WarningSettlement)
		s.logg.Error(ctx, "mark order settled failed", err)
		return "settled_at not recorded: " + err.Error()
	}
	if len(rows) > 0 {
		s.logg.Info(s.logg.WithField(ctx, "records", len(rows)), "settlement records written")
	}
	return ""
}

func (s *service) normalizeCreate(input CreateOrderInput) (CreateOrderInput, error) {
	if err := input.Requester.Validate(); err != nil {
		return input, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid requester")
	}
	if input.DropshipperID == uuid.Nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "dropshipper id is required")
	}
	if !canCreateFor(input.Requester, input.DropshipperID) {
		return input, pkgerrors.New(pkgerrors.CodeForbidden, "requester cannot create orders for this dropshipper")
	}

	input.CustomerName = strings.TrimSpace(input.CustomerName)
	if input.CustomerName == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	input.CustomerEmail = strings.ToLower(strings.TrimSpace(input.CustomerEmail))
	if err := inputValidator.Var(input.CustomerEmail, "required,email"); err != nil {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "customer email is invalid")
	}

	if input.Source == "" {
		input.Source = enums.OrderSourceManual
	}
	if !input.Source.IsValid() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "invalid order source")
	}
	input.ShippingAddress = input.ShippingAddress.Normalize()
	if input.Source == enums.OrderSourceManual {
		if err := input.ShippingAddress.Validate(); err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
		}
	}

	if len(input.Items) == 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for i, item := range input.Items {
		if item.Quantity <= 0 {
			return input, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be greater than zero", i))
		}
		if item.ProductID == uuid.Nil && item.VariantID == nil {
			return input, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product or variant id is required", i))
		}
	}
	if input.ShippingCost.IsNegative() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "shipping cost cannot be negative")
	}
	if input.Tax.IsNegative() {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "tax cannot be negative")
	}

	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = s.opts.DefaultCurrency
	}
	input.ExternalOrderID = optionalPtr(input.ExternalOrderID)
	input.Notes = optionalPtr(input.Notes)
	return input, nil
}

// resolveItems snapshots catalog data for every requested line.
func (s *service) resolveItems(ctx context.Context, inputs []ItemInput) ([]models.OrderItem, []commission.Line, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	lines := make([]commission.Line, 0, len(inputs))
	for i, in := range inputs {
		productID := in.ProductID
		var variant *catalog.VariantSnapshot
		if in.VariantID != nil {
			v, err := s.catalog.GetVariant(ctx, *in.VariantID)
			if err != nil {
				return nil, nil, err
			}
			if productID != uuid.Nil && productID != v.ProductID {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: variant does not belong to product", i))
			}
			productID = v.ProductID
			variant = v
		}
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		if !product.IsActive {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product %s is not active", i, product.SKU))
		}

		item := models.OrderItem{
			Position:          i + 1,
			ProductID:         product.ProductID,
			ExternalProductID: in.ExternalProductID,
			ExternalVariantID: in.ExternalVariantID,
			Name:              product.Name,
			SKU:               product.SKU,
			Quantity:          in.Quantity,
			UnitPrice:         product.Price,
			CommissionRate:    product.CommissionRate,
			Owner:             product.Owner,
		}
		if variant != nil {
			id := variant.VariantID
			item.VariantID = &id
			item.UnitPrice = variant.Price
			if variant.SKU != "" {
				item.SKU = variant.SKU
			}
			if variant.Name != "" {
				item.Name = product.Name + " - " + variant.Name
			}
		}
		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

		line := commission.Line{
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			CommissionRate: item.CommissionRate,
			Owner:          item.Owner,
			AgentRate:      product.AgentRate,
		}
		if item.Owner.IsSourcingAgent() {
			rate := s.calculator.AgentRateFor(line)
			item.AgentRate = decimal.NullDecimal{Decimal: rate, Valid: true}
			line.AgentRate = &rate
		}

		items = append(items, item)
		lines = append(lines, line)
	}
	return items, lines, nil
}

func (s *service) nextOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.opts.OrderNumberAttempts; attempt++ {
		candidate, err := s.numbers(s.now())
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		exists, err := s.repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order number")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order number")
}

func (s *service) notify(ctx context.Context, eventType enums.NotificationEventType, order *models.Order, attrs map[string]string, recipients ...enums.NotificationRecipient) {
	for _, recipient := range recipients {
		event := notifications.Event{
			Type:        eventType,
			Recipient:   recipient,
			OrderID:     &order.ID,
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			Attributes:  attrs,
		}
		switch recipient {
		case enums.NotificationRecipientSupplier:
			id := order.SupplierID
			event.RecipientID = &id
		case enums.NotificationRecipientDropshipper:
			id := order.DropshipperID
			event.RecipientID = &id
		case enums.NotificationRecipientCustomer:
			event.Email = order.CustomerEmail
		}
		s.notifier.Publish(ctx, event)
	}
}

func inferSupplier(explicit *uuid.UUID, items []models.OrderItem) (uuid.UUID, error) {
	if explicit != nil && *explicit != uuid.Nil {
		return *explicit, nil
	}
	for _, item := range items {
		if item.Owner.IsSupplier() {
			return item.Owner.ID, nil
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unable to determine supplier: no item is supplier-owned")
}

func inventoryLines(items []models.OrderItem) []inventory.OrderLine {
	lines := make([]inventory.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, inventory.OrderLine{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

func canCreateFor(requester actor.Actor, dropshipperID uuid.UUID) bool {
	if requester.Privileged() {
		return true
	}
	return requester.Role == enums.ActorRoleDropshipper && requester.PartyID == dropshipperID
}

// canManage allows the owning supplier or a privileged actor.
func canManage(requester actor.Actor, order *models.Order) bool {
	if requester.Privileged() {
		return true
	}
	return requester.Role == enums.ActorRoleSupplier && requester.PartyID == order.SupplierID
}

func canView(requester actor.Actor, order *models.Order) bool {
	if canManage(requester, order) {
		return true
	}
	switch requester.Role {
	case enums.ActorRoleDropshipper:
		return requester.PartyID == order.DropshipperID
	case enums.ActorRoleSourcingAgent:
		for _, item := range order.Items {
			if requester.Owns(item.Owner) {
				return true
			}
		}
	}
	return false
}

func listScope(requester actor.Actor) (ListScope, error) {
	if requester.Privileged() {
		return ListScope{}, nil
	}
	party := requester.PartyID
	switch requester.Role {
	case enums.ActorRoleSupplier:
		return ListScope{SupplierID: &party}, nil
	case enums.ActorRoleDropshipper:
		return ListScope{DropshipperID: &party}, nil
	case enums.ActorRoleSourcingAgent:
		return ListScope{AgentID: &party}, nil
	default:
		return ListScope{}, pkgerrors.New(pkgerrors.CodeForbidden, "requester cannot list orders")
	}
}

func (p ShippingPatch) updates() map[string]any {
	updates := map[string]any{}
	if v := optionalPtr(p.TrackingNumber); v != nil {
		updates["tracking_number"] = *v
	}
	if v := optionalPtr(p.TrackingURL); v != nil {
		updates["tracking_url"] = *v
	}
	if v := optionalPtr(p.ShippingMethod); v != nil {
		updates["shipping_method"] = *v
	}
	return updates
}

func shippingAttributes(order *models.Order) map[string]string {
	attrs := map[string]string{}
	if order.TrackingNumber != nil {
		attrs["tracking_number"] = *order.TrackingNumber
	}
	if order.TrackingURL != nil {
		attrs["tracking_url"] = *order.TrackingURL
	}
	if order.ShippingMethod != nil {
		attrs["shipping_method"] = *order.ShippingMethod
	}
	return attrs
}

func isExternalDuplicate(err error) bool {
	return dbpkg.IsUniqueViolation(err, externalOrderConstraint) || dbpkg.IsUniqueViolation(err, externalOrderColumn)
}

func versionConflictOr(err error, action string) error {
	if errors.Is(err, ErrVersionConflict) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order was modified concurrently")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func notFoundOr(err error, notFound, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func optionalPtr(value *string) *string {
	if value == nil {
		return nil
	}
	return optionalString(*value)
}
