package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/supplyhub-backend/internal/commission"
	"github.com/angelmondragon/supplyhub-backend/pkg/actor"
	dbpkg "github.com/angelmondragon/supplyhub-backend/pkg/db"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/supplyhub-backend/pkg/errors"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/metrics"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox"
	"github.com/angelmondragon/supplyhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

var ledgerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://supplyhub.dev/settlement"))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service writes and reads the append-only settlement ledger.
type Service interface {
	RecordCommission(ctx context.Context, order *models.Order) ([]models.Payment, error)
	RecordSubscriptionCharge(ctx context.Context, charge SubscriptionCharge) (*models.Payment, error)
	History(ctx context.Context, payee types.PartyRef, rng DateRange, act actor.Actor) (*History, error)
	Records(ctx context.Context, rng DateRange) ([]models.Payment, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	calculator commission.Calculator
	outbox     eventEmitter
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	now        func() time.Time
}

// NewService builds the settlement ledger. The outbox emitter is optional.
func NewService(repo Repository, tx txRunner, calculator commission.Calculator, emitter eventEmitter, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		calculator: calculator,
		outbox:     emitter,
		logg:       logg,
		metrics:    m,
		now:        time.Now,
	}, nil
}

// CommissionTransactionID is the dedup key of the commission row for one payee of an order.
func CommissionTransactionID(orderID uuid.UUID, payee types.PartyRef) string {
	return fmt.Sprintf("commission:%s:%s:%s", orderID, payee.Kind, payee.ID)
}

// RefundTransactionID is the dedup key of the refund row reversing a completed commission.
func RefundTransactionID(orderID uuid.UUID, payee types.PartyRef) string {
	return fmt.Sprintf("refund:%s:%s:%s", orderID, payee.Kind, payee.ID)
}

// ReinstatementTransactionID is the dedup key of the row restoring a commission
// that was booked as refunded before the order was delivered.
func ReinstatementTransactionID(orderID uuid.UUID, payee types.PartyRef) string {
	return fmt.Sprintf("%s%s:%s:%s", reinstatementPrefix, orderID, payee.Kind, payee.ID)
}

const reinstatementPrefix = "commission-reinstated:"

func isReinstatement(row models.Payment) bool {
	return row.Type == enums.PaymentTypeOther && strings.HasPrefix(row.TransactionID, reinstatementPrefix)
}

func subscriptionTransactionID(subscriptionID uuid.UUID, periodStart time.Time) string {
	return fmt.Sprintf("subscription:%s:%s", subscriptionID, periodStart.UTC().Format("20060102"))
}

// RecordCommission writes one commission row per supplier and per sourcing
// agent on the order. Rows that already exist are left untouched. When a
// refunded order has completed commission, a refund row reverses each one.
// A delivered order whose commission was booked as refunded gets one
// reinstatement row per payee. Only rows created by this call are returned.
func (s *service) RecordCommission(ctx context.Context, order *models.Order) ([]models.Payment, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not in a terminal status")
	}
	if len(order.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order items required")
	}

	status := enums.PaymentStatusCompleted
	if order.Status != enums.OrderStatusDelivered {
		status = enums.PaymentStatusRefunded
	}

	breakdown := s.calculator.Calculate(LinesFromOrder(order))
	created := make([]models.Payment, 0, len(breakdown.Shares))
	for _, share := range breakdown.Shares {
		txID := CommissionTransactionID(order.ID, share.Payee)
		existing, err := s.repo.FindByTransactionID(ctx, txID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commission record")
		}

		if existing == nil {
			row := s.newRow(txID, enums.PaymentTypeCommission, status, share.Amount, order.Currency, share.Payee)
			row.OrderID = &order.ID
			row.Details = types.JSONMap{
				"order_number": order.OrderNumber,
				"order_status": order.Status.String(),
				"revenue":      share.Revenue.StringFixed(2),
			}
			inserted, err := s.insert(ctx, row)
			if err != nil {
				return created, err
			}
			if inserted {
				created = append(created, *row)
			}
			continue
		}

		row, err := s.settleExisting(ctx, order, existing)
		if err != nil {
			return created, err
		}
		if row != nil {
			created = append(created, *row)
		}
	}
	return created, nil
}

// settleExisting reconciles a payee whose commission row was already booked.
// The commission row itself is never rewritten: a delivery after a
// cancellation books a reinstatement row, and a refund reverses whichever
// completed row carries the earnings.
func (s *service) settleExisting(ctx context.Context, order *models.Order, commissionRow *models.Payment) (*models.Payment, error) {
	if commissionRow.Status == enums.PaymentStatusCompleted {
		if order.Status == enums.OrderStatusRefunded {
			return s.recordRefund(ctx, order, commissionRow)
		}
		return nil, nil
	}

	reinstated, err := s.repo.FindByTransactionID(ctx, ReinstatementTransactionID(order.ID, commissionRow.Payee))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reinstatement record")
	}
	switch order.Status {
	case enums.OrderStatusDelivered:
		if reinstated != nil {
			return nil, nil
		}
		return s.recordReinstatement(ctx, order, commissionRow)
	case enums.OrderStatusRefunded:
		if reinstated != nil {
			return s.recordRefund(ctx, order, reinstated)
		}
	}
	return nil, nil
}

func (s *service) recordReinstatement(ctx context.Context, order *models.Order, commissionRow *models.Payment) (*models.Payment, error) {
	txID := ReinstatementTransactionID(order.ID, commissionRow.Payee)
	row := s.newRow(txID, enums.PaymentTypeOther, enums.PaymentStatusCompleted, commissionRow.Amount, commissionRow.Currency, commissionRow.Payee)
	row.OrderID = &order.ID
	row.Details = types.JSONMap{
		"order_number":           order.OrderNumber,
		"order_status":           order.Status.String(),
		"reinstates_transaction": commissionRow.TransactionID,
		"reinstates_payment_id":  commissionRow.ID.String(),
	}
	inserted, err := s.insert(ctx, row)
	if err != nil || !inserted {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":       order.ID.String(),
		"transaction_id": txID,
	}), "commission reinstated after delivery")
	return row, nil
}

func (s *service) recordRefund(ctx context.Context, order *models.Order, commissionRow *models.Payment) (*models.Payment, error) {
	txID := RefundTransactionID(order.ID, commissionRow.Payee)
	existing, err := s.repo.FindByTransactionID(ctx, txID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund record")
	}
	if existing != nil {
		return nil, nil
	}

	row := s.newRow(txID, enums.PaymentTypeRefund, enums.PaymentStatusCompleted, commissionRow.Amount, commissionRow.Currency, commissionRow.Payee)
	row.OrderID = &order.ID
	row.Details = types.JSONMap{
		"order_number":           order.OrderNumber,
		"reverses_transaction":   commissionRow.TransactionID,
		"reverses_payment_id":    commissionRow.ID.String(),
		"original_record_status": commissionRow.Status.String(),
	}
	inserted, err := s.insert(ctx, row)
	if err != nil || !inserted {
		return nil, err
	}
	return row, nil
}

func (s *service) RecordSubscriptionCharge(ctx context.Context, charge SubscriptionCharge) (*models.Payment, error) {
	if charge.SubscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if err := charge.Payee.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payee")
	}
	if !charge.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if charge.PeriodStart.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period start required")
	}
	if !charge.PeriodEnd.IsZero() && !charge.PeriodEnd.After(charge.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}
	currency := strings.ToUpper(strings.TrimSpace(charge.Currency))
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency required")
	}

	txID := subscriptionTransactionID(charge.SubscriptionID, charge.PeriodStart)
	existing, err := s.repo.FindByTransactionID(ctx, txID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription record")
	}
	if existing != nil {
		return existing, nil
	}

	subscriptionID := charge.SubscriptionID
	row := s.newRow(txID, enums.PaymentTypeSubscription, enums.PaymentStatusCompleted, charge.Amount.Round(2), currency, charge.Payee)
	row.SubscriptionID = &subscriptionID
	row.Details = types.JSONMap{
		"plan_name":    charge.PlanName,
		"period_start": charge.PeriodStart.UTC().Format(time.RFC3339),
	}
	if !charge.PeriodEnd.IsZero() {
		row.Details["period_end"] = charge.PeriodEnd.UTC().Format(time.RFC3339)
	}

	inserted, err := s.insert(ctx, row)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.reload(ctx, txID)
	}
	return row, nil
}

func (s *service) History(ctx context.Context, payee types.PartyRef, rng DateRange, act actor.Actor) (*History, error) {
	if err := act.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor")
	}
	if err := payee.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payee")
	}
	if !act.Privileged() && !act.Owns(payee) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "actor cannot view this payee's history")
	}
	if err := validateRange(rng); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListForPayee(ctx, payee, enums.PaymentTypeCommission, enums.PaymentStatusCompleted, rng.From.UTC(), rng.To.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commission history")
	}
	others, err := s.repo.ListForPayee(ctx, payee, enums.PaymentTypeOther, enums.PaymentStatusCompleted, rng.From.UTC(), rng.To.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reinstated commission")
	}
	for _, row := range others {
		if isReinstatement(row) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })

	total := decimal.Zero
	buckets := map[string]*DailyTotal{}
	for _, row := range rows {
		total = total.Add(row.Amount)
		day := row.CreatedAt.UTC().Format(time.DateOnly)
		bucket, ok := buckets[day]
		if !ok {
			bucket = &DailyTotal{Date: day, Amount: decimal.Zero}
			buckets[day] = bucket
		}
		bucket.Amount = bucket.Amount.Add(row.Amount)
		bucket.Count++
	}

	daily := make([]DailyTotal, 0, len(buckets))
	for _, bucket := range buckets {
		daily = append(daily, *bucket)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return &History{
		Payee:   payee,
		Range:   rng,
		Total:   total.Round(2),
		Count:   len(rows),
		Daily:   daily,
		Records: rows,
	}, nil
}

// Records lists every ledger row created inside the window, used by exports.
func (s *service) Records(ctx context.Context, rng DateRange) ([]models.Payment, error) {
	if err := validateRange(rng); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListCreatedBetween(ctx, rng.From.UTC(), rng.To.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlement records")
	}
	return rows, nil
}

func (s *service) newRow(txID string, paymentType enums.PaymentType, status enums.PaymentStatus, amount decimal.Decimal, currency string, payee types.PartyRef) *models.Payment {
	now := s.now().UTC()
	return &models.Payment{
		ID:            uuid.NewSHA1(ledgerNamespace, []byte(txID)),
		Type:          paymentType,
		Amount:        amount,
		Currency:      currency,
		Status:        status,
		Method:        enums.PaymentMethodInternal,
		Payee:         payee,
		TransactionID: txID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// insert writes row and its outbox event in one transaction. A unique
// violation means another writer recorded the same key first; it reports
// inserted=false without error.
func (s *service) insert(ctx context.Context, row *models.Payment) (bool, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, row); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   row.ID,
			Data: payloads.CommissionRecordedEvent{
				PaymentID:     row.ID,
				OrderID:       row.OrderID,
				Type:          row.Type,
				Status:        row.Status,
				Payee:         row.Payee,
				Amount:        row.Amount,
				Currency:      row.Currency,
				TransactionID: row.TransactionID,
			},
			OccurredAt: row.CreatedAt,
		})
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			logCtx := s.logg.WithField(ctx, "transaction_id", row.TransactionID)
			s.logg.Info(logCtx, "settlement record already exists")
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert settlement record")
	}
	s.metrics.SettlementRecorded(row.Type.String())
	return true, nil
}

func (s *service) reload(ctx context.Context, txID string) (*models.Payment, error) {
	row, err := s.repo.FindByTransactionID(ctx, txID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload settlement record")
	}
	return row, nil
}

func validateRange(rng DateRange) error {
	if rng.From.IsZero() || rng.To.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "date range requires from and to")
	}
	if !rng.To.After(rng.From) {
		return pkgerrors.New(pkgerrors.CodeValidation, "date range end must be after start")
	}
	return nil
}

// LinesFromOrder rebuilds calculator input from the order's item snapshots.
func LinesFromOrder(order *models.Order) []commission.Line {
	lines := make([]commission.Line, 0, len(order.Items))
	for _, item := range order.Items {
		line := commission.Line{
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			CommissionRate: item.CommissionRate,
			Owner:          item.Owner,
		}
		if item.AgentRate.Valid {
			rate := item.AgentRate.Decimal
			line.AgentRate = &rate
		}
		lines = append(lines, line)
	}
	return lines
}
