package catalog

import (
	"context"
	"strings"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
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

func (r *repository) FindConnectionByShop(ctx context.Context, shopDomain string) (*models.StorefrontConnection, error) {
	var conn models.StorefrontConnection
	err := r.db.WithContext(ctx).
		Where("lower(shop_domain) = ?", strings.ToLower(strings.TrimSpace(shopDomain))).
		Where("is_active = ?", true).
		First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindListing prefers an exact variant mapping and falls back to the product-level mapping.
func (r *repository) FindListing(ctx context.Context, connectionID uuid.UUID, externalProductID string, externalVariantID *string) (*models.ExternalListing, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Where("connection_id = ?", connectionID).
			Where("external_product_id = ?", externalProductID)
	}

	var listing models.ExternalListing
	if externalVariantID != nil && *externalVariantID != "" {
		err := base().Where("external_variant_id = ?", *externalVariantID).First(&listing).Error
		if err == nil {
			return &listing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	if err := base().Where("external_variant_id IS NULL").First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}
