package inventory

import (
	"context"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for stock quantities and the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	LockVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	SetProductQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	SetVariantQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	InsertEntry(ctx context.Context, entry *models.InventoryLedgerEntry) error
	ListEntries(ctx context.Context, target Target, cursor *pagination.Cursor, newestFirst bool, limit int) ([]models.InventoryLedgerEntry, error)
	ListLowStock(ctx context.Context, threshold int, owner *types.PartyRef) ([]StockLevel, error)
}
