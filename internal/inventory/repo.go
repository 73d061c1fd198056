package inventory

import (
	"context"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) LockVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) SetProductQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) SetVariantQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{"quantity": quantity, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) InsertEntry(ctx context.Context, entry *models.InventoryLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListEntries pages through ledger entries for a product (all of its variants
// included) or a single variant, continuing after cursor.
func (r *repository) ListEntries(ctx context.Context, target Target, cursor *pagination.Cursor, newestFirst bool, limit int) ([]models.InventoryLedgerEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryLedgerEntry{})
	if target.VariantID != nil {
		query = query.Where("variant_id = ?", *target.VariantID)
	} else {
		query = query.Where("product_id = ?", target.ProductID)
	}
	if keyset, args := pagination.Keyset(cursor, newestFirst); keyset != "" {
		query = query.Where("("+keyset+")", args...)
	}

	var rows []models.InventoryLedgerEntry
	err := query.
		Order(pagination.OrderBy(newestFirst)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListLowStock returns active products without variants and all variants whose
// quantity is unset or at/below threshold.
func (r *repository) ListLowStock(ctx context.Context, threshold int, owner *types.PartyRef) ([]StockLevel, error) {
	var products []models.Product
	productQuery := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ?", true).
		Where("(quantity IS NULL OR quantity <= ?)", threshold).
		Where("NOT EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id)")
	if owner != nil {
		productQuery = productQuery.Where("owner_kind = ? AND owner_id = ?", owner.Kind, owner.ID)
	}
	if err := productQuery.Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	type variantRow struct {
		ID        uuid.UUID
		ProductID uuid.UUID
		SKU       string
		Name      string
		Quantity  *int
		OwnerKind enums.PartyKind
		OwnerID   uuid.UUID
	}
	var variants []variantRow
	variantQuery := r.db.WithContext(ctx).
		Table("product_variants AS v").
		Select("v.id, v.product_id, v.sku, v.name, v.quantity, p.owner_kind, p.owner_id").
		Joins("JOIN products p ON p.id = v.product_id").
		Where("p.is_active = ?", true).
		Where("(v.quantity IS NULL OR v.quantity <= ?)", threshold)
	if owner != nil {
		variantQuery = variantQuery.Where("p.owner_kind = ? AND p.owner_id = ?", owner.Kind, owner.ID)
	}
	if err := variantQuery.Order("v.name ASC, v.id ASC").Scan(&variants).Error; err != nil {
		return nil, err
	}

	levels := make([]StockLevel, 0, len(products)+len(variants))
	for _, p := range products {
		levels = append(levels, StockLevel{
			ProductID: p.ID,
			Owner:     p.Owner,
			SKU:       p.SKU,
			Name:      p.Name,
			Quantity:  p.Quantity,
		})
	}
	for _, v := range variants {
		variantID := v.ID
		levels = append(levels, StockLevel{
			ProductID: v.ProductID,
			VariantID: &variantID,
			Owner:     types.PartyRef{Kind: v.OwnerKind, ID: v.OwnerID},
			SKU:       v.SKU,
			Name:      v.Name,
			Quantity:  v.Quantity,
		})
	}
	return levels, nil
}
