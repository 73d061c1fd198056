package orders

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict reports that an order changed between lock and update.
var ErrVersionConflict = errors.New("order version conflict")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) OrderNumberExists(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByExternalID(ctx context.Context, externalOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.withDetail(r.db.WithContext(ctx)).
		Where("external_order_id = ?", externalOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) NextSequence(ctx context.Context, orderID uuid.UUID) (int, error) {
	var current int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderStatusEntry{}).
		Select("COALESCE(MAX(sequence), 0)").
		Where("order_id = ?", orderID).
		Row().
		Scan(&current)
	if err != nil {
		return 0, err
	}
	return int(current) + 1, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withDetail(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder loads the order row under SELECT ... FOR UPDATE.
func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder applies updates and bumps the version, guarded by expectedVersion.
func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, expectedVersion int, updates map[string]any) error {
	values := make(map[string]any, len(updates)+2)
	for key, value := range updates {
		values[key] = value
	}
	values["version"] = expectedVersion + 1
	if _, ok := values["updated_at"]; !ok {
		values["updated_at"] = time.Now().UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		UpdateColumns(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *repository) MarkSettled(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND settled_at IS NULL", id).
		UpdateColumn("settled_at", at).Error
}

// ListOrders returns up to limit orders inside scope, newest first, after cursor.
func (r *repository) ListOrders(ctx context.Context, scope ListScope, status *enums.OrderStatus, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if scope.SupplierID != nil {
		query = query.Where("supplier_id = ?", *scope.SupplierID)
	}
	if scope.DropshipperID != nil {
		query = query.Where("dropshipper_id = ?", *scope.DropshipperID)
	}
	if scope.AgentID != nil {
		query = query.Where(
			"id IN (SELECT order_id FROM order_items WHERE owner_kind = ? AND owner_id = ?)",
			enums.PartyKindSourcingAgent, *scope.AgentID,
		)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if keyset, args := pagination.Keyset(cursor, true); keyset != "" {
		query = query.Where("("+keyset+")", args...)
	}

	var rows []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order(pagination.OrderBy(true)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) withDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") })
}
