package seed

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/internal/bootstrap"
	"github.com/angelmondragon/supplyhub-backend/pkg/config"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

func newSeeder(t *testing.T) (*Seeder, *bootstrap.Ledger, *bytes.Buffer) {
	t.Helper()
	db := dbtest.Open(t)
	logs := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "seed-test", Output: logs})
	ledger, err := bootstrap.NewLedger(bootstrap.Params{
		Config: &config.Config{
			Locks:         config.LocksConfig{Backend: config.LocksBackendLocal},
			Commission:    config.CommissionConfig{DefaultAgentRate: "10"},
			Orders:        config.OrdersConfig{OrderNumberAttempts: 5, DefaultCurrency: "USD"},
			Notifications: config.NotificationsConfig{QueueSize: 64, Workers: 1, Sink: config.NotificationSinkLog},
		},
		Logger: logger.New(logger.Options{Output: io.Discard}),
		DB:     dbpkg.Wrap(db),
	})
	require.NoError(t, err)
	ledger.Dispatcher.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = ledger.Dispatcher.Close(ctx)
	})

	seeder, err := New(db, ledger.Orders, logg, 42)
	require.NoError(t, err)
	return seeder, ledger, logs
}

func TestRunSeedsCatalogStorefrontsAndOrders(t *testing.T) {
	seeder, _, logs := newSeeder(t)
	ctx := context.Background()

	result, err := seeder.Run(ctx, Options{Suppliers: 2, Agents: 1, Dropshippers: 2, ProductsPerOwner: 3, Orders: 4})
	require.NoError(t, err)

	assert.Len(t, result.Suppliers, 2)
	assert.Len(t, result.Agents, 1)
	assert.Len(t, result.Products, 9)
	assert.Len(t, result.Connections, 2)
	assert.Len(t, result.Orders, 4)

	var products, listings, orderCount int64
	require.NoError(t, seeder.db.Model(&models.Product{}).Count(&products).Error)
	require.NoError(t, seeder.db.Model(&models.ExternalListing{}).Count(&listings).Error)
	require.NoError(t, seeder.db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(9), products)
	assert.Equal(t, int64(result.Listings), listings)
	assert.Equal(t, int64(4), orderCount)

	var orders []models.Order
	require.NoError(t, seeder.db.Find(&orders).Error)
	dropshippers := map[string]bool{}
	for _, conn := range result.Connections {
		dropshippers[conn.DropshipperID.String()] = true
	}
	for _, order := range orders {
		assert.Equal(t, enums.OrderSourceManual, order.Source)
		assert.Equal(t, enums.OrderStatusPending, order.Status)
		assert.True(t, dropshippers[order.DropshipperID.String()])
	}

	assert.Contains(t, logs.String(), "catalog seeded")
}

func TestRunValidatesOptions(t *testing.T) {
	seeder, _, _ := newSeeder(t)

	_, err := seeder.Run(context.Background(), Options{Suppliers: 0, ProductsPerOwner: 2})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestNewRequiresDependencies(t *testing.T) {
	_, ledger, _ := newSeeder(t)
	logg := logger.New(logger.Options{Output: io.Discard})

	_, err := New(nil, ledger.Orders, logg, 1)
	assert.Error(t, err)
	_, err = New(dbtest.Open(t), nil, logg, 1)
	assert.Error(t, err)
	_, err = New(dbtest.Open(t), ledger.Orders, nil, 1)
	assert.Error(t, err)
}
