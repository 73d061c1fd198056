package inventory

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/locks"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/pagination"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const defaultLedgerPageSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service mutates stock quantities and records every change in the inventory ledger.
type Service interface {
	ApplyManual(ctx context.Context, target Target, newQuantity int, act actor.Actor, notes string) (*models.InventoryLedgerEntry, error)
	ApplyOrder(ctx context.Context, lines []OrderLine, orderID uuid.UUID, act actor.Actor) ([]models.InventoryLedgerEntry, error)
	ApplySync(ctx context.Context, target Target, newQuantity int, source string) (*models.InventoryLedgerEntry, error)
	ApplyAdjustment(ctx context.Context, target Target, delta int, changeType enums.InventoryChangeType, act actor.Actor, notes string) (*models.InventoryLedgerEntry, error)
	BulkApply(ctx context.Context, updates []BulkUpdate, act actor.Actor, notes string) ([]models.InventoryLedgerEntry, error)
	QueryLog(ctx context.Context, target Target, act actor.Actor, newestFirst bool) iter.Seq2[models.InventoryLedgerEntry, error]
	LowStock(ctx context.Context, threshold int, act actor.Actor) ([]StockLevel, error)
}

// Options tunes ledger paging.
type Options struct {
	PageSize int
}

type service struct {
	repo     Repository
	tx       txRunner
	locker   locks.Locker
	logg     *logger.Logger
	metrics  *metrics.LedgerMetrics
	pageSize int
	now      func() time.Time
}

// NewService builds the inventory ledger service.
func NewService(repo Repository, tx txRunner, locker locks.Locker, logg *logger.Logger, m *metrics.LedgerMetrics, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultLedgerPageSize
	}
	return &service{
		repo:     repo,
		tx:       tx,
		locker:   locker,
		logg:     logg,
		metrics:  m,
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

func (s *service) ApplyManual(ctx context.Context, target Target, newQuantity int, act actor.Actor, notes string) (*models.InventoryLedgerEntry, error) {
	return s.apply(ctx, target, act, change{
		changeType: enums.InventoryChangeTypeManual,
		notes:      optionalNote(notes),
		apply:      func(int) int { return newQuantity },
	})
}

// ApplyOrder decrements stock for each line in its own transaction. Decrements
// clamp at zero; failing lines do not stop the remaining ones.
func (s *service) ApplyOrder(ctx context.Context, lines []OrderLine, orderID uuid.UUID, act actor.Actor) ([]models.InventoryLedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	system := actor.Actor{UserID: act.UserID, Role: enums.ActorRoleSystem}
	id := orderID

	keys := make([]string, 0, len(lines))
	for _, line := range lines {
		if target := line.target(); target.validate() == nil {
			keys = append(keys, target.lockKey())
		}
	}
	release, err := locks.Multi(ctx, s.locker, keys)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire inventory locks")
	}
	defer release()

	entries := make([]models.InventoryLedgerEntry, 0, len(lines))
	var errs error
	for i, line := range lines {
		if line.Quantity <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("line %d: quantity must be positive", i))
			continue
		}
		qty := line.Quantity
		entry, err := s.applyLocked(ctx, line.target(), system, change{
			changeType: enums.InventoryChangeTypeOrder,
			orderID:    &id,
			apply:      func(previous int) int { return max(previous-qty, 0) },
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("line %d product %s: %w", i, line.ProductID, err))
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, errs
}

// ApplySync overwrites stock with the value reported by an external system.
func (s *service) ApplySync(ctx context.Context, target Target, newQuantity int, source string) (*models.InventoryLedgerEntry, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = "external"
	}
	return s.apply(ctx, target, actor.System(), change{
		changeType: enums.InventoryChangeTypeSync,
		notes:      optionalNote("sync:" + source),
		apply:      func(int) int { return newQuantity },
	})
}

func (s *service) ApplyAdjustment(ctx context.Context, target Target, delta int, changeType enums.InventoryChangeType, act actor.Actor, notes string) (*models.InventoryLedgerEntry, error) {
	if changeType != enums.InventoryChangeTypeReturn && changeType != enums.InventoryChangeTypeAdjustment {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change type must be return or adjustment")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must not be zero")
	}
	return s.apply(ctx, target, act, change{
		changeType: changeType,
		notes:      optionalNote(notes),
		apply:      func(previous int) int { return max(previous+delta, 0) },
	})
}

// BulkApply sets absolute quantities. Targets that cannot be resolved or that
// the actor does not own are skipped and omitted from the result.
func (s *service) BulkApply(ctx context.Context, updates []BulkUpdate, act actor.Actor, notes string) ([]models.InventoryLedgerEntry, error) {
	if err := act.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}
	entries := make([]models.InventoryLedgerEntry, 0, len(updates))
	for _, update := range updates {
		entry, err := s.ApplyManual(ctx, update.Target, update.Quantity, act, notes)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id": update.Target.ProductID.String(),
				"error":      err.Error(),
			}), "inventory bulk update skipped")
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// QueryLog lazily walks the ledger in keyset pages. Each range over the
// returned sequence restarts from the first page.
func (s *service) QueryLog(ctx context.Context, target Target, act actor.Actor, newestFirst bool) iter.Seq2[models.InventoryLedgerEntry, error] {
	return func(yield func(models.InventoryLedgerEntry, error) bool) {
		resolved, err := s.authorizeRead(ctx, target, act)
		if err != nil {
			yield(models.InventoryLedgerEntry{}, err)
			return
		}

		var cursor *pagination.Cursor
		for {
			rows, err := s.repo.ListEntries(ctx, resolved, cursor, newestFirst, s.pageSize)
			if err != nil {
				yield(models.InventoryLedgerEntry{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory ledger"))
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if len(rows) < s.pageSize {
				return
			}
			last := rows[len(rows)-1]
			cursor = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

func (s *service) LowStock(ctx context.Context, threshold int, act actor.Actor) ([]StockLevel, error) {
	if err := act.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must not be negative")
	}

	var owner *types.PartyRef
	if !act.Privileged() {
		ref, err := ownedParty(act)
		if err != nil {
			return nil, err
		}
		owner = &ref
	}

	levels, err := s.repo.ListLowStock(ctx, threshold, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return levels, nil
}

// apply serializes a single stock mutation under the target's process lock.
func (s *service) apply(ctx context.Context, target Target, act actor.Actor, c change) (*models.InventoryLedgerEntry, error) {
	if err := target.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory target")
	}
	release, err := s.locker.Acquire(ctx, target.lockKey())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire inventory lock")
	}
	defer release()
	return s.applyLocked(ctx, target, act, c)
}

// applyLocked runs a transaction holding the row lock while the quantity and
// its ledger entry are written. The caller holds target's process lock.
func (s *service) applyLocked(ctx context.Context, target Target, act actor.Actor, c change) (*models.InventoryLedgerEntry, error) {
	if err := target.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory target")
	}
	if err := act.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}

	var entry *models.InventoryLedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		st, err := lockStock(ctx, repo, target)
		if err != nil {
			return err
		}
		if !act.Privileged() && !act.Owns(st.owner) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "actor does not own this product")
		}

		previous := st.current()
		next := c.apply(previous)
		if st.variantID != nil {
			err = repo.SetVariantQuantity(ctx, *st.variantID, next)
		} else {
			err = repo.SetProductQuantity(ctx, st.productID, next)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quantity")
		}

		record := &models.InventoryLedgerEntry{
			ID:               uuid.New(),
			ProductID:        st.productID,
			VariantID:        st.variantID,
			PreviousQuantity: previous,
			NewQuantity:      next,
			ChangeAmount:     next - previous,
			ChangeType:       c.changeType,
			OrderID:          c.orderID,
			ActorUserID:      act.UserRef(),
			Notes:            c.notes,
			CreatedAt:        s.now().UTC(),
		}
		if err := repo.InsertEntry(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert inventory ledger entry")
		}
		entry = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InventoryChanged(entry.ChangeType.String())
	return entry, nil
}

func lockStock(ctx context.Context, repo Repository, target Target) (stock, error) {
	if target.VariantID != nil {
		variant, err := repo.LockVariant(ctx, *target.VariantID)
		if err != nil {
			return stock{}, notFoundOr(err, "variant not found", "lock variant")
		}
		if target.ProductID != uuid.Nil && target.ProductID != variant.ProductID {
			return stock{}, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")
		}
		product, err := repo.FindProduct(ctx, variant.ProductID)
		if err != nil {
			return stock{}, notFoundOr(err, "product not found", "load variant product")
		}
		return stock{
			productID: product.ID,
			variantID: &variant.ID,
			owner:     product.Owner,
			quantity:  variant.Quantity,
		}, nil
	}

	product, err := repo.LockProduct(ctx, target.ProductID)
	if err != nil {
		return stock{}, notFoundOr(err, "product not found", "lock product")
	}
	return stock{
		productID: product.ID,
		owner:     product.Owner,
		quantity:  product.Quantity,
	}, nil
}

// authorizeRead resolves the target's owner and checks the actor may read its ledger.
func (s *service) authorizeRead(ctx context.Context, target Target, act actor.Actor) (Target, error) {
	if err := target.validate(); err != nil {
		return Target{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory target")
	}
	if err := act.Validate(); err != nil {
		return Target{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}

	productID := target.ProductID
	if target.VariantID != nil {
		variant, err := s.repo.FindVariant(ctx, *target.VariantID)
		if err != nil {
			return Target{}, notFoundOr(err, "variant not found", "load variant")
		}
		productID = variant.ProductID
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return Target{}, notFoundOr(err, "product not found", "load product")
	}
	if !act.Privileged() && !act.Owns(product.Owner) {
		return Target{}, pkgerrors.New(pkgerrors.CodeForbidden, "actor does not own this product")
	}
	return Target{ProductID: productID, VariantID: target.VariantID}, nil
}

func ownedParty(act actor.Actor) (types.PartyRef, error) {
	switch act.Role {
	case enums.ActorRoleSupplier:
		return types.Supplier(act.PartyID), nil
	case enums.ActorRoleSourcingAgent:
		return types.SourcingAgent(act.PartyID), nil
	default:
		return types.PartyRef{}, pkgerrors.New(pkgerrors.CodeForbidden, "role does not own inventory")
	}
}

func optionalNote(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func notFoundOr(err error, notFound, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
