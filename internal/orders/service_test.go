package orders

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/catalog"
	"github.com/angelmondragon/supplyhub-backend/internal/commission"
	"github.com/angelmondragon/supplyhub-backend/internal/inventory"
	"github.com/angelmondragon/supplyhub-backend/internal/notifications"
	"github.com/angelmondragon/supplyhub-backend/internal/settlement"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/locks"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(eventType enums.NotificationEventType) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notifications.Event
	for _, event := range p.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type harness struct {
	svc         *service
	db          *gorm.DB
	published   *recordingPublisher
	supplierID  uuid.UUID
	dropshipper uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
	client := dbpkg.Wrap(db)
	locker := locks.NewLocalLocker()
	calculator := commission.NewCalculator(decimal.NewFromInt(10))

	cat, err := catalog.NewService(catalog.NewRepository(db))
	require.NoError(t, err)
	inv, err := inventory.NewService(inventory.NewRepository(db), client, locker, logg, nil, inventory.Options{})
	require.NoError(t, err)
	settle, err := settlement.NewService(settlement.NewRepository(db), client, calculator, outbox.NewService(outbox.NewRepository(db), logg), logg, nil)
	require.NoError(t, err)

	published := &recordingPublisher{}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(db),
		Tx:         client,
		Locker:     locker,
		Catalog:    cat,
		Inventory:  inv,
		Settlement: settle,
		Notifier:   published,
		Calculator: calculator,
		Logger:     logg,
	})
	require.NoError(t, err)

	impl := svc.(*service)
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	impl.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }

	return &harness{
		svc:         impl,
		db:          db,
		published:   published,
		supplierID:  uuid.New(),
		dropshipper: uuid.New(),
	}
}

func (h *harness) supplierActor() actor.Actor {
	return actor.Actor{UserID: uuid.New(), PartyID: h.supplierID, Role: enums.ActorRoleSupplier}
}

func (h *harness) dropshipperActor() actor.Actor {
	return actor.Actor{UserID: uuid.New(), PartyID: h.dropshipper, Role: enums.ActorRoleDropshipper}
}

func (h *harness) input(items ...ItemInput) CreateOrderInput {
	return CreateOrderInput{
		Requester:     h.dropshipperActor(),
		DropshipperID: h.dropshipper,
		CustomerName:  "Dana Buyer",
		CustomerEmail: "dana@example.com",
		ShippingAddress: types.ShippingAddress{
			Line1:   "1 Market St",
			City:    "Austin",
			Country: "us",
		},
		Items: items,
	}
}

func (h *harness) product(t *testing.T, price, rate string, qty *int) *models.Product {
	t.Helper()
	return dbtest.CreateProduct(t, h.db, types.Supplier(h.supplierID), price, rate, dbtest.WithQuantity(qty))
}

func (h *harness) createOrder(t *testing.T, qty int) *models.Order {
	t.Helper()
	product := h.product(t, "100", "5", dbtest.Int(50))
	result, err := h.svc.CreateOrder(context.Background(), h.input(ItemInput{ProductID: product.ID, Quantity: qty}))
	require.NoError(t, err)
	return result.Order
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, pkgerrors.As(err).Code())
}

func productQuantity(t *testing.T, db *gorm.DB, id uuid.UUID) *int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", id).Error)
	return product.Quantity
}

func countRows(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var count int64
	query := db.Model(model)
	if where != "" {
		query = query.Where(where, args...)
	}
	require.NoError(t, query.Count(&count).Error)
	return count
}

func TestCreateOrderComputesTotalsAndAppliesInventory(t *testing.T) {
	h := newHarness(t)
	product := h.product(t, "100", "5", dbtest.Int(10))

	in := h.input(ItemInput{ProductID: product.ID, Quantity: 2})
	in.ShippingCost = decimal.NewFromInt(10)
	in.Tax = decimal.NewFromInt(5)

	result, err := h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	require.True(t, result.Created)
	assert.Empty(t, result.Warnings)

	order := result.Order
	assert.Regexp(t, orderNumberPattern, order.OrderNumber)
	assert.Equal(t, h.supplierID, order.SupplierID)
	assert.Equal(t, enums.OrderSourceManual, order.Source)
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, "US", order.ShippingAddress.Country)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, order.CommissionAmount.Equal(decimal.NewFromInt(10)))
	assert.True(t, order.SourcingAgentCommissionAmount.IsZero())
	assert.True(t, order.Total.Equal(decimal.NewFromInt(215)))
	assert.True(t, order.PayoutAmount.Equal(decimal.NewFromInt(205)))

	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, types.Supplier(h.supplierID), order.Items[0].Owner)
	assert.False(t, order.Items[0].AgentRate.Valid)

	require.Len(t, order.History, 1)
	assert.Equal(t, enums.OrderStatusPending, order.History[0].Status)
	assert.Equal(t, 1, order.History[0].Sequence)

	assert.Equal(t, 8, *productQuantity(t, h.db, product.ID))
	assert.Equal(t, int64(1), countRows(t, h.db, &models.InventoryLedgerEntry{}, "order_id = ? AND change_type = ?", order.ID, enums.InventoryChangeTypeOrder))

	created := h.published.ofType(enums.NotificationEventTypeOrderCreated)
	require.Len(t, created, 3)
	recipients := map[enums.NotificationRecipient]notifications.Event{}
	for _, event := range created {
		recipients[event.Recipient] = event
	}
	assert.Equal(t, h.supplierID, *recipients[enums.NotificationRecipientSupplier].RecipientID)
	assert.Equal(t, h.dropshipper, *recipients[enums.NotificationRecipientDropshipper].RecipientID)
	assert.Equal(t, "dana@example.com", recipients[enums.NotificationRecipientCustomer].Email)
}

func TestCreateOrderClampsInventoryAtZero(t *testing.T) {
	h := newHarness(t)
	product := h.product(t, "10", "5", dbtest.Int(1))

	result, err := h.svc.CreateOrder(context.Background(), h.input(ItemInput{ProductID: product.ID, Quantity: 3}))
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 0, *productQuantity(t, h.db, product.ID))

	var entry models.InventoryLedgerEntry
	require.NoError(t, h.db.Where("order_id = ?", result.Order.ID).First(&entry).Error)
	assert.Equal(t, 1, entry.PreviousQuantity)
	assert.Equal(t, 0, entry.NewQuantity)
	assert.Equal(t, -1, entry.ChangeAmount)
}

func TestCreateOrderResolvesVariantPrice(t *testing.T) {
	h := newHarness(t)
	product := h.product(t, "100", "10", nil)
	variant := dbtest.CreateVariant(t, h.db, product.ID, "80", dbtest.Int(4))

	result, err := h.svc.CreateOrder(context.Background(), h.input(ItemInput{VariantID: &variant.ID, Quantity: 1}))
	require.NoError(t, err)
	item := result.Order.Items[0]
	assert.Equal(t, product.ID, item.ProductID)
	require.NotNil(t, item.VariantID)
	assert.Equal(t, variant.ID, *item.VariantID)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, variant.SKU, item.SKU)
	assert.True(t, result.Order.CommissionAmount.Equal(decimal.NewFromInt(8)))

	var stored models.ProductVariant
	require.NoError(t, h.db.First(&stored, "id = ?", variant.ID).Error)
	assert.Equal(t, 3, *stored.Quantity)
}

func TestCreateOrderUnknownProductIsNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateOrder(context.Background(), h.input(ItemInput{ProductID: uuid.New(), Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeNotFound)
	assert.Zero(t, countRows(t, h.db, &models.Order{}, ""))
}

func TestCreateOrderWithoutSupplierIsRejected(t *testing.T) {
	h := newHarness(t)
	product := dbtest.CreateProduct(t, h.db, types.SourcingAgent(uuid.New()), "50", "5")

	_, err := h.svc.CreateOrder(context.Background(), h.input(ItemInput{ProductID: product.ID, Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeValidation)
	assert.Zero(t, countRows(t, h.db, &models.Order{}, ""))
}

func TestCreateOrderAgentLinesAndNegativePayoutWarning(t *testing.T) {
	h := newHarness(t)
	agentID := uuid.New()
	withRate := dbtest.CreateProduct(t, h.db, types.SourcingAgent(agentID), "100", "90", dbtest.WithAgentRate("20"))
	defaulted := dbtest.CreateProduct(t, h.db, types.SourcingAgent(agentID), "100", "0")

	in := h.input(
		ItemInput{ProductID: withRate.ID, Quantity: 1},
		ItemInput{ProductID: defaulted.ID, Quantity: 1},
	)
	in.SupplierID = &h.supplierID

	result, err := h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	order := result.Order
	assert.True(t, order.CommissionAmount.Equal(decimal.NewFromInt(90)))
	assert.True(t, order.SourcingAgentCommissionAmount.Equal(decimal.NewFromInt(30)))
	assert.True(t, order.PayoutAmount.Equal(decimal.NewFromInt(80)))

	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].AgentRate.Valid)
	assert.True(t, order.Items[0].AgentRate.Decimal.Equal(decimal.NewFromInt(20)))
	assert.True(t, order.Items[1].AgentRate.Decimal.Equal(decimal.NewFromInt(10)))

	negative := dbtest.CreateProduct(t, h.db, types.SourcingAgent(agentID), "100", "95", dbtest.WithAgentRate("20"))
	in = h.input(ItemInput{ProductID: negative.ID, Quantity: 1})
	in.SupplierID = &h.supplierID
	result, err = h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, result.Order.PayoutAmount.Equal(decimal.NewFromInt(-15)))
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "payout amount is negative")
}

func TestCreateOrderValidatesInput(t *testing.T) {
	h := newHarness(t)
	product := h.product(t, "10", "5", dbtest.Int(5))
	item := ItemInput{ProductID: product.ID, Quantity: 1}

	cases := map[string]func(*CreateOrderInput){
		"bad email":        func(in *CreateOrderInput) { in.CustomerEmail = "not-an-email" },
		"missing name":     func(in *CreateOrderInput) { in.CustomerName = "  " },
		"no items":         func(in *CreateOrderInput) { in.Items = nil },
		"zero quantity":    func(in *CreateOrderInput) { in.Items = []ItemInput{{ProductID: product.ID}} },
		"negative tax":     func(in *CreateOrderInput) { in.Tax = decimal.NewFromInt(-1) },
		"negative ship":    func(in *CreateOrderInput) { in.ShippingCost = decimal.NewFromInt(-1) },
		"missing address":  func(in *CreateOrderInput) { in.ShippingAddress = types.ShippingAddress{} },
		"no dropshipper":   func(in *CreateOrderInput) { in.DropshipperID = uuid.Nil },
		"unknown source":   func(in *CreateOrderInput) { in.Source = "fax" },
		"variant mismatch": func(in *CreateOrderInput) { v := uuid.New(); in.Items = []ItemInput{{ProductID: product.ID, VariantID: &v, Quantity: 1}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := h.input(item)
			mutate(&in)
			_, err := h.svc.CreateOrder(context.Background(), in)
			require.Error(t, err)
			code := pkgerrors.As(err).Code()
			assert.Contains(t, []pkgerrors.Code{pkgerrors.CodeValidation, pkgerrors.CodeNotFound}, code)
		})
	}

	in := h.input(item)
	in.Requester = actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleDropshipper}
	_, err := h.svc.CreateOrder(context.Background(), in)
	assertCode(t, err, pkgerrors.CodeForbidden)

	assert.Zero(t, countRows(t, h.db, &models.Order{}, ""))
	assert.Equal(t, 5, *productQuantity(t, h.db, product.ID))
}

func TestCreateOrderStorefrontSkipsAddressValidation(t *testing.T) {
	h := newHarness(t)
	product := h.product(t, "10", "5", nil)
	in := h.input(ItemInput{ProductID: product.ID, Quantity: 1})
	in.Source = enums.OrderSourceStorefront
	in.ShippingAddress = types.ShippingAddress{}
	in.Requester = actor.System()

	result, err := h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderSourceStorefront, result.Order.Source)
	assert.Nil(t, result.Order.History[0].ActorUserID)
}

func TestCreateOrderDeduplicatesExternalID(t *testing.T) {
	h := newHarness(t)
	product := h.product(t, "10", "5", dbtest.Int(10))
	external := "ext-1001"

	in := h.input(ItemInput{ProductID: product.ID, Quantity: 2})
	in.ExternalOrderID = &external

	first, err := h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	assert.Equal(t, int64(1), countRows(t, h.db, &models.Order{}, ""))
	assert.Equal(t, 8, *productQuantity(t, h.db, product.ID))
	assert.Len(t, h.published.ofType(enums.NotificationEventTypeOrderCreated), 3)
}

func TestCreateOrderNumberCollisionsExhaustAttempts(t *testing.T) {
	h := newHarness(t)
	existing := h.createOrder(t, 1)
	h.svc.numbers = func(time.Time) (string, error) { return existing.OrderNumber, nil }

	product := h.product(t, "10", "5", nil)
	_, err := h.svc.CreateOrder(context.Background(), h.input(ItemInput{ProductID: product.ID, Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestGetOrderAuthorization(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)

	got, err := h.svc.GetOrder(context.Background(), order.ID, h.supplierActor())
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = h.svc.GetOrder(context.Background(), order.ID, h.dropshipperActor())
	require.NoError(t, err)

	_, err = h.svc.GetOrder(context.Background(), order.ID, actor.Admin(uuid.New()))
	require.NoError(t, err)

	_, err = h.svc.GetOrder(context.Background(), order.ID, actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleSupplier})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.GetOrder(context.Background(), order.ID, actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleSourcingAgent})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.GetOrder(context.Background(), uuid.New(), h.supplierActor())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListOrdersScopesAndPages(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		h.createOrder(t, 1)
	}
	otherDropshipper := uuid.New()
	product := h.product(t, "10", "5", nil)
	in := h.input(ItemInput{ProductID: product.ID, Quantity: 1})
	in.DropshipperID = otherDropshipper
	in.Requester = actor.Admin(uuid.New())
	_, err := h.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := h.svc.ListOrders(ctx, h.dropshipperActor(), pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.True(t, first.Items[0].CreatedAt.After(first.Items[1].CreatedAt))

	second, err := h.svc.ListOrders(ctx, h.dropshipperActor(), pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)
	for _, order := range append(first.Items, second.Items...) {
		assert.Equal(t, h.dropshipper, order.DropshipperID)
	}

	all, err := h.svc.ListOrders(ctx, actor.Admin(uuid.New()), pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)

	supplier, err := h.svc.ListOrders(ctx, h.supplierActor(), pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, supplier.Items, 4)

	shipped := enums.OrderStatusShipped
	none, err := h.svc.ListOrders(ctx, h.supplierActor(), pagination.Params{}, ListFilters{Status: &shipped})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	_, err = h.svc.ListOrders(ctx, h.supplierActor(), pagination.Params{Cursor: "%%%"}, ListFilters{})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestTransitionStatusDeliveredSettlesOnce(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 2)
	ctx := context.Background()

	result, err := h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "delivered", Note: "signed", Requester: h.supplierActor()})
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, enums.OrderStatusDelivered, result.Order.Status)
	assert.Equal(t, enums.OrderPaymentStatusPaid, result.Order.PaymentStatus)
	assert.NotNil(t, result.Order.SettledAt)
	assert.Equal(t, 2, result.Order.Version)

	_, err = h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "delivered", Requester: h.supplierActor()})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRows(t, h.db, &models.Payment{}, "type = ? AND order_id = ?", enums.PaymentTypeCommission, order.ID))
	var payment models.Payment
	require.NoError(t, h.db.Where("order_id = ?", order.ID).First(&payment).Error)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)

	stored, err := h.svc.GetOrder(ctx, order.ID, h.supplierActor())
	require.NoError(t, err)
	require.Len(t, stored.History, 3)
	assert.Equal(t, "signed", *stored.History[1].Note)
	assert.Len(t, h.published.ofType(enums.NotificationEventTypeOrderStatusChanged), 6)
}

func TestTransitionStatusRefundAfterDeliveryWritesRefundRows(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)
	ctx := context.Background()

	_, err := h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "delivered", Requester: h.supplierActor()})
	require.NoError(t, err)
	result, err := h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "refunded", Requester: actor.Admin(uuid.New())})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderPaymentStatusRefunded, result.Order.PaymentStatus)
	assert.Equal(t, int64(1), countRows(t, h.db, &models.Payment{}, "type = ?", enums.PaymentTypeRefund))
}

func TestTransitionStatusRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)
	ctx := context.Background()

	_, err := h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "lost", Requester: h.supplierActor()})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "shipped", Requester: h.dropshipperActor()})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "shipped", Requester: actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleSupplier}})
	assertCode(t, err, pkgerrors.CodeForbidden)

	_, err = h.svc.TransitionStatus(ctx, TransitionInput{OrderID: uuid.New(), Status: "shipped", Requester: h.supplierActor()})
	assertCode(t, err, pkgerrors.CodeNotFound)

	assert.Equal(t, int64(1), countRows(t, h.db, &models.OrderStatusEntry{}, "order_id = ?", order.ID))
}

func TestConcurrentTransitionsAppendOneEntryEach(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.TransitionStatus(context.Background(), TransitionInput{OrderID: order.ID, Status: "shipped", Requester: h.supplierActor()})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := h.svc.GetOrder(context.Background(), order.ID, h.supplierActor())
	require.NoError(t, err)
	assert.Equal(t, 1+workers, stored.Version)
	require.Len(t, stored.History, 1+workers)
	for i, entry := range stored.History {
		assert.Equal(t, i+1, entry.Sequence)
	}
}

func TestAttachShippingAutoShipsPendingOrders(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)
	ctx := context.Background()
	tracking := " 1Z999AA10123456784 "
	blank := ""

	result, err := h.svc.AttachShipping(ctx, ShippingInput{
		OrderID:   order.ID,
		Patch:     ShippingPatch{TrackingNumber: &tracking, TrackingURL: &blank},
		Requester: h.supplierActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, result.Order.Status)
	require.NotNil(t, result.Order.TrackingNumber)
	assert.Equal(t, "1Z999AA10123456784", *result.Order.TrackingNumber)
	assert.Nil(t, result.Order.TrackingURL)
	require.Len(t, result.Order.History, 2)
	assert.Equal(t, enums.OrderStatusShipped, result.Order.History[1].Status)

	updated := h.published.ofType(enums.NotificationEventTypeOrderShippingUpdated)
	require.Len(t, updated, 2)
	assert.Equal(t, "1Z999AA10123456784", updated[0].Attributes["tracking_number"])

	method := "ground"
	result, err = h.svc.AttachShipping(ctx, ShippingInput{OrderID: order.ID, Patch: ShippingPatch{ShippingMethod: &method}, Requester: h.supplierActor()})
	require.NoError(t, err)
	assert.Equal(t, "ground", *result.Order.ShippingMethod)
	assert.Len(t, result.Order.History, 2)

	_, err = h.svc.AttachShipping(ctx, ShippingInput{OrderID: order.ID, Patch: ShippingPatch{TrackingURL: &blank}, Requester: h.supplierActor()})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = h.svc.AttachShipping(ctx, ShippingInput{OrderID: order.ID, Patch: ShippingPatch{ShippingMethod: &method}, Requester: h.dropshipperActor()})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestAttachShippingDoesNotReopenDeliveredOrders(t *testing.T) {
	h := newHarness(t)
	order := h.createOrder(t, 1)
	ctx := context.Background()

	_, err := h.svc.TransitionStatus(ctx, TransitionInput{OrderID: order.ID, Status: "delivered", Requester: h.supplierActor()})
	require.NoError(t, err)

	tracking := "TRACK-1"
	result, err := h.svc.AttachShipping(ctx, ShippingInput{OrderID: order.ID, Patch: ShippingPatch{TrackingNumber: &tracking}, Requester: h.supplierActor()})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, result.Order.Status)
	assert.Len(t, result.Order.History, 2)
}
