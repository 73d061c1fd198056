package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the read-only catalog snapshot accessor used by order and webhook flows.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductSnapshot, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*VariantSnapshot, error)
	ConnectionByShop(ctx context.Context, shopDomain string) (*models.StorefrontConnection, error)
	ResolveListing(ctx context.Context, connectionID uuid.UUID, externalProductID string, externalVariantID *string) (*Listing, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog accessor.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductSnapshot, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	snap := productSnapshotFromModel(product)
	return &snap, nil
}

func (s *service) GetVariant(ctx context.Context, id uuid.UUID) (*VariantSnapshot, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	variant, err := s.repo.FindVariant(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "variant not found", "load variant")
	}
	product, err := s.repo.FindProduct(ctx, variant.ProductID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load variant product")
	}
	snap := variantSnapshotFromModel(variant, product.Price)
	return &snap, nil
}

func (s *service) ConnectionByShop(ctx context.Context, shopDomain string) (*models.StorefrontConnection, error) {
	if strings.TrimSpace(shopDomain) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "shop domain required")
	}
	conn, err := s.repo.FindConnectionByShop(ctx, shopDomain)
	if err != nil {
		return nil, notFoundOr(err, "storefront connection not found", "load storefront connection")
	}
	return conn, nil
}

func (s *service) ResolveListing(ctx context.Context, connectionID uuid.UUID, externalProductID string, externalVariantID *string) (*Listing, error) {
	if strings.TrimSpace(externalProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPayload, "external product id required")
	}
	listing, err := s.repo.FindListing(ctx, connectionID, externalProductID, externalVariantID)
	if err != nil {
		return nil, notFoundOr(err, "external listing not mapped", "load external listing")
	}
	return &Listing{ProductID: listing.ProductID, VariantID: listing.VariantID}, nil
}

func notFoundOr(err error, notFound, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
