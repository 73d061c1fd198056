package inventory

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/locks"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

func newTestService(t *testing.T, pageSize int) (*service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "inventory-test", Output: io.Discard})
	svc, err := NewService(NewRepository(db), dbpkg.Wrap(db), locks.NewLocalLocker(), logg, nil, Options{PageSize: pageSize})
	require.NoError(t, err)

	impl := svc.(*service)
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	var tick atomic.Int64
	impl.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }
	return impl, db
}

func supplierActor(partyID uuid.UUID) actor.Actor {
	return actor.Actor{UserID: uuid.New(), PartyID: partyID, Role: enums.ActorRoleSupplier}
}

func quantityOf(t *testing.T, db *gorm.DB, productID uuid.UUID) *int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.Where("id = ?", productID).First(&product).Error)
	return product.Quantity
}

func TestApplyOrderClampsAtZero(t *testing.T) {
	svc, db := newTestService(t, 0)
	product := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5", dbtest.WithQuantity(dbtest.Int(3)))
	orderID := uuid.New()

	entries, err := svc.ApplyOrder(context.Background(), []OrderLine{{ProductID: product.ID, Quantity: 5}}, orderID, actor.System())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, 3, entry.PreviousQuantity)
	assert.Equal(t, 0, entry.NewQuantity)
	assert.Equal(t, -3, entry.ChangeAmount)
	assert.Equal(t, enums.InventoryChangeTypeOrder, entry.ChangeType)
	require.NotNil(t, entry.OrderID)
	assert.Equal(t, orderID, *entry.OrderID)

	qty := quantityOf(t, db, product.ID)
	require.NotNil(t, qty)
	assert.Equal(t, 0, *qty)
}

func TestApplyOrderDecrementsVariantStock(t *testing.T) {
	svc, db := newTestService(t, 0)
	product := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5", dbtest.WithQuantity(dbtest.Int(50)))
	variant := dbtest.CreateVariant(t, db, product.ID, "", dbtest.Int(8))

	entries, err := svc.ApplyOrder(context.Background(), []OrderLine{{ProductID: product.ID, VariantID: &variant.ID, Quantity: 2}}, uuid.New(), actor.System())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 8, entries[0].PreviousQuantity)
	assert.Equal(t, 6, entries[0].NewQuantity)
	require.NotNil(t, entries[0].VariantID)
	assert.Equal(t, variant.ID, *entries[0].VariantID)

	var reloaded models.ProductVariant
	require.NoError(t, db.Where("id = ?", variant.ID).First(&reloaded).Error)
	assert.Equal(t, 6, *reloaded.Quantity)
	assert.Equal(t, 50, *quantityOf(t, db, product.ID))
}

func TestApplyOrderAggregatesLineFailures(t *testing.T) {
	svc, db := newTestService(t, 0)
	product := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5", dbtest.WithQuantity(dbtest.Int(10)))

	entries, err := svc.ApplyOrder(context.Background(), []OrderLine{
		{ProductID: uuid.New(), Quantity: 1},
		{ProductID: product.ID, Quantity: 4},
	}, uuid.New(), actor.System())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product not found")
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].NewQuantity)
}

func TestConcurrentApplyOrderWritesOneEntryPerLine(t *testing.T) {
	svc, db := newTestService(t, 0)
	owner := types.Supplier(uuid.New())
	first := dbtest.CreateProduct(t, db, owner, "10", "5", dbtest.WithQuantity(dbtest.Int(20)))
	second := dbtest.CreateProduct(t, db, owner, "10", "5", dbtest.WithQuantity(dbtest.Int(20)))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		lines := []OrderLine{{ProductID: first.ID, Quantity: 1}, {ProductID: second.ID, Quantity: 2}}
		if i%2 == 1 {
			lines[0], lines[1] = lines[1], lines[0]
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyOrder(context.Background(), lines, uuid.New(), actor.System())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, 20-workers, *quantityOf(t, db, first.ID))
	assert.Equal(t, 20-2*workers, *quantityOf(t, db, second.ID))

	for _, productID := range []uuid.UUID{first.ID, second.ID} {
		var entries []models.InventoryLedgerEntry
		require.NoError(t, db.Where("product_id = ?", productID).Order("previous_quantity DESC").Find(&entries).Error)
		require.Len(t, entries, workers)
		for i := 1; i < len(entries); i++ {
			assert.Equal(t, entries[i-1].NewQuantity, entries[i].PreviousQuantity)
		}
	}
}

func TestApplySyncOverwritesWithoutFloor(t *testing.T) {
	svc, db := newTestService(t, 0)
	product := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5", dbtest.WithQuantity(dbtest.Int(4)))

	entry, err := svc.ApplySync(context.Background(), ForProduct(product.ID), 17, "storefront")
	require.NoError(t, err)
	assert.Equal(t, 4, entry.PreviousQuantity)
	assert.Equal(t, 17, entry.NewQuantity)
	assert.Equal(t, 13, entry.ChangeAmount)
	assert.Equal(t, enums.InventoryChangeTypeSync, entry.ChangeType)
	assert.Nil(t, entry.ActorUserID)
	require.NotNil(t, entry.Notes)
	assert.Equal(t, "sync:storefront", *entry.Notes)

	entry, err = svc.ApplySync(context.Background(), ForProduct(product.ID), -2, "storefront")
	require.NoError(t, err)
	assert.Equal(t, -2, entry.NewQuantity)
	assert.Equal(t, -2, *quantityOf(t, db, product.ID))
}

func TestApplyManualRequiresOwnership(t *testing.T) {
	svc, db := newTestService(t, 0)
	ownerID := uuid.New()
	product := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5", dbtest.WithQuantity(dbtest.Int(1)))

	_, err := svc.ApplyManual(context.Background(), ForProduct(product.ID), 9, supplierActor(uuid.New()), "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
	assert.Equal(t, 1, *quantityOf(t, db, product.ID))

	var count int64
	require.NoError(t, db.Model(&models.InventoryLedgerEntry{}).Count(&count).Error)
	assert.Zero(t, count)

	owner := supplierActor(ownerID)
	entry, err := svc.ApplyManual(context.Background(), ForProduct(product.ID), 9, owner, "restock")
	require.NoError(t, err)
	assert.Equal(t, 8, entry.ChangeAmount)
	require.NotNil(t, entry.ActorUserID)
	assert.Equal(t, owner.UserID, *entry.ActorUserID)

	_, err = svc.ApplyManual(context.Background(), ForProduct(product.ID), 2, actor.Admin(uuid.New()), "")
	require.NoError(t, err)
	assert.Equal(t, 2, *quantityOf(t, db, product.ID))
}

func TestApplyManualTreatsUnsetQuantityAsZero(t *testing.T) {
	svc, db := newTestService(t, 0)
	ownerID := uuid.New()
	product := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5")

	entry, err := svc.ApplyManual(context.Background(), ForProduct(product.ID), 5, supplierActor(ownerID), "")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.PreviousQuantity)
	assert.Equal(t, 5, entry.ChangeAmount)
}

func TestApplyAdjustment(t *testing.T) {
	svc, db := newTestService(t, 0)
	ownerID := uuid.New()
	product := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5", dbtest.WithQuantity(dbtest.Int(2)))
	owner := supplierActor(ownerID)

	entry, err := svc.ApplyAdjustment(context.Background(), ForProduct(product.ID), 3, enums.InventoryChangeTypeReturn, owner, "customer return")
	require.NoError(t, err)
	assert.Equal(t, 5, entry.NewQuantity)
	assert.Equal(t, enums.InventoryChangeTypeReturn, entry.ChangeType)

	entry, err = svc.ApplyAdjustment(context.Background(), ForProduct(product.ID), -9, enums.InventoryChangeTypeAdjustment, owner, "shrinkage")
	require.NoError(t, err)
	assert.Equal(t, 0, entry.NewQuantity)
	assert.Equal(t, -5, entry.ChangeAmount)

	_, err = svc.ApplyAdjustment(context.Background(), ForProduct(product.ID), 1, enums.InventoryChangeTypeSync, owner, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.ApplyAdjustment(context.Background(), ForProduct(product.ID), 0, enums.InventoryChangeTypeReturn, owner, "")
	require.Error(t, err)
}

func TestBulkApplySkipsUnresolvedAndForeignTargets(t *testing.T) {
	svc, db := newTestService(t, 0)
	ownerID := uuid.New()
	mine := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5", dbtest.WithQuantity(dbtest.Int(1)))
	theirs := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5", dbtest.WithQuantity(dbtest.Int(1)))

	entries, err := svc.BulkApply(context.Background(), []BulkUpdate{
		{Target: ForProduct(mine.ID), Quantity: 11},
		{Target: ForProduct(theirs.ID), Quantity: 12},
		{Target: ForProduct(uuid.New()), Quantity: 13},
	}, supplierActor(ownerID), "bulk")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, mine.ID, entries[0].ProductID)
	assert.Equal(t, 11, *quantityOf(t, db, mine.ID))
	assert.Equal(t, 1, *quantityOf(t, db, theirs.ID))
}

func TestQueryLogPagesLazilyAndRestarts(t *testing.T) {
	svc, db := newTestService(t, 2)
	ownerID := uuid.New()
	product := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5", dbtest.WithQuantity(dbtest.Int(0)))
	owner := supplierActor(ownerID)

	for qty := 1; qty <= 5; qty++ {
		_, err := svc.ApplyManual(context.Background(), ForProduct(product.ID), qty, owner, "")
		require.NoError(t, err)
	}

	seq := svc.QueryLog(context.Background(), ForProduct(product.ID), owner, true)

	var first []int
	for entry, err := range seq {
		require.NoError(t, err)
		first = append(first, entry.NewQuantity)
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1}, first)

	var second []int
	for entry, err := range seq {
		require.NoError(t, err)
		second = append(second, entry.NewQuantity)
		if len(second) == 3 {
			break
		}
	}
	assert.Equal(t, []int{5, 4, 3}, second)

	var oldest []int
	for entry, err := range svc.QueryLog(context.Background(), ForProduct(product.ID), owner, false) {
		require.NoError(t, err)
		oldest = append(oldest, entry.NewQuantity)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, oldest)
}

func TestQueryLogRejectsForeignActor(t *testing.T) {
	svc, db := newTestService(t, 0)
	product := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5")

	var errs []error
	for _, err := range svc.QueryLog(context.Background(), ForProduct(product.ID), supplierActor(uuid.New()), true) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(errs[0]).Code())
}

func TestLowStockScopesToOwner(t *testing.T) {
	svc, db := newTestService(t, 0)
	ownerID := uuid.New()
	low := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5", dbtest.WithQuantity(dbtest.Int(2)))
	unset := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5")
	dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5", dbtest.WithQuantity(dbtest.Int(40)))
	withVariants := dbtest.CreateProduct(t, db, types.Supplier(ownerID), "10", "5")
	lowVariant := dbtest.CreateVariant(t, db, withVariants.ID, "", dbtest.Int(1))
	dbtest.CreateVariant(t, db, withVariants.ID, "", dbtest.Int(30))
	foreign := dbtest.CreateProduct(t, db, types.Supplier(uuid.New()), "10", "5", dbtest.WithQuantity(dbtest.Int(0)))

	levels, err := svc.LowStock(context.Background(), 5, supplierActor(ownerID))
	require.NoError(t, err)

	found := map[uuid.UUID]bool{}
	for _, level := range levels {
		if level.VariantID != nil {
			found[*level.VariantID] = true
			continue
		}
		found[level.ProductID] = true
	}
	assert.Len(t, levels, 3)
	assert.True(t, found[low.ID])
	assert.True(t, found[unset.ID])
	assert.True(t, found[lowVariant.ID])
	assert.False(t, found[withVariants.ID])
	assert.False(t, found[foreign.ID])

	all, err := svc.LowStock(context.Background(), 5, actor.Admin(uuid.New()))
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = svc.LowStock(context.Background(), 5, actor.Actor{UserID: uuid.New(), PartyID: uuid.New(), Role: enums.ActorRoleDropshipper})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}
