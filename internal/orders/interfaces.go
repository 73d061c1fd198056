package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders, items and status history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	FindByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	AppendHistory(ctx context.Context, entry *models.OrderStatusEntry) error
	NextSequence(ctx context.Context, orderID uuid.UUID) (int, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, expectedVersion int, updates map[string]any) error
	MarkSettled(ctx context.Context, id uuid.UUID, at time.Time) error
	ListOrders(ctx context.Context, scope ListScope, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error)
}
