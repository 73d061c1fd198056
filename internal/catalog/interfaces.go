package catalog

import (
	"context"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines read access to catalog and storefront mapping tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
	FindConnectionByShop(ctx context.Context, shopDomain string) (*models.StorefrontConnection, error)
	FindListing(ctx context.Context, connectionID uuid.UUID, externalProductID string, externalVariantID *string) (*models.ExternalListing, error)
}
