// Package dbtest opens in-memory SQLite databases carrying the ledger schema
// for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)


// Open returns an isolated in-memory database with the full schema applied.
// The pool is pinned to one connection so every statement sees the same database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, dbpkg.ApplySQLiteSchema(context.Background(), db))
	return db
}

// ProductOption customizes a seeded product.
type ProductOption func(*models.Product)

// WithQuantity sets the on-hand quantity; nil leaves it unset.
func WithQuantity(qty *int) ProductOption {
	return func(p *models.Product) { p.Quantity = qty }
}

// WithAgentRate sets the product-level sourcing agent rate.
func WithAgentRate(rate string) ProductOption {
	return func(p *models.Product) {
		p.AgentRate = decimal.NewNullDecimal(decimal.RequireFromString(rate))
	}
}

// CreateProduct seeds a product owned by owner.
func CreateProduct(t testing.TB, db *gorm.DB, owner types.PartyRef, price, commissionRate string, opts ...ProductOption) *models.Product {
	t.Helper()
	now := time.Now().UTC()
	product := &models.Product{
		ID:             uuid.New(),
		Owner:          owner,
		SKU:            "SKU-" + uuid.NewString()[:8],
		Name:           "Test Product",
		Price:          decimal.RequireFromString(price),
		Cost:           decimal.Zero,
		CommissionRate: decimal.RequireFromString(commissionRate),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(product)
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// CreateVariant seeds a variant of productID; an empty price falls back to the product price.
func CreateVariant(t testing.TB, db *gorm.DB, productID uuid.UUID, price string, qty *int) *models.ProductVariant {
	t.Helper()
	now := time.Now().UTC()
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: productID,
		SKU:       "VAR-" + uuid.NewString()[:8],
		Name:      "Test Variant",
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if price != "" {
		variant.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	require.NoError(t, db.Create(variant).Error)
	return variant
}

// CreateConnection seeds a storefront connection for dropshipperID.
func CreateConnection(t testing.TB, db *gorm.DB, shopDomain string, dropshipperID uuid.UUID, secret string) *models.StorefrontConnection {
	t.Helper()
	now := time.Now().UTC()
	conn := &models.StorefrontConnection{
		ID:            uuid.New(),
		ShopDomain:    shopDomain,
		DropshipperID: dropshipperID,
		WebhookSecret: secret,
		Currency:      "USD",
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(conn).Error)
	return conn
}

// CreateListing maps an external storefront product onto the catalog.
func CreateListing(t testing.TB, db *gorm.DB, connectionID uuid.UUID, externalProductID string, externalVariantID *string, productID uuid.UUID, variantID *uuid.UUID) *models.ExternalListing {
	t.Helper()
	now := time.Now().UTC()
	listing := &models.ExternalListing{
		ID:                uuid.New(),
		ConnectionID:      connectionID,
		ExternalProductID: externalProductID,
		ExternalVariantID: externalVariantID,
		ProductID:         productID,
		VariantID:         variantID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
