package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/supplyhub-backend/internal/settlement"
	"github.com/angelmondragon/supplyhub-backend/pkg/bigquery"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/enums"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
	"github.com/angelmondragon/supplyhub-backend/pkg/types"
)

type stubRecords struct {
	rows  []models.Payment
	err   error
	asked settlement.DateRange
}

func (s *stubRecords) Records(_ context.Context, rng settlement.DateRange) ([]models.Payment, error) {
	s.asked = rng
	return s.rows, s.err
}

type stubWarehouse struct {
	batches [][]any
	err     error
}

func (w *stubWarehouse) InsertSettlements(_ context.Context, rows []any) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, rows)
	return nil
}

func payments(n int) []models.Payment {
	out := make([]models.Payment, n)
	for i := range out {
		out[i] = models.Payment{
			ID:            uuid.New(),
			Type:          enums.PaymentTypeCommission,
			Status:        enums.PaymentStatusCompleted,
			Amount:        decimal.NewFromInt(int64(i + 1)),
			Currency:      "USD",
			Payee:         types.Supplier(uuid.New()),
			TransactionID: uuid.NewString(),
		}
	}
	return out
}

func newExportJob(t *testing.T, records *stubRecords, warehouse *stubWarehouse, now time.Time) *settlementExportJob {
	t.Helper()
	jobIface, err := NewSettlementExportJob(SettlementExportJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Settlement: records,
		Warehouse:  warehouse,
		Days:       2,
	})
	require.NoError(t, err)
	job := jobIface.(*settlementExportJob)
	job.now = func() time.Time { return now }
	return job
}

func TestSettlementExportJobBatchesRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 6, 0, 0, 0, time.UTC)
	records := &stubRecords{rows: payments(settlementExportBatch + 3)}
	warehouse := &stubWarehouse{}
	job := newExportJob(t, records, warehouse, now)

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, now.AddDate(0, 0, -2), records.asked.From)
	assert.Equal(t, now, records.asked.To)
	require.Len(t, warehouse.batches, 2)
	assert.Len(t, warehouse.batches[0], settlementExportBatch)
	assert.Len(t, warehouse.batches[1], 3)

	row, ok := warehouse.batches[1][2].(bigquery.SettlementRow)
	require.True(t, ok)
	last := records.rows[len(records.rows)-1]
	assert.Equal(t, last.ID.String(), row.PaymentID)
	assert.Equal(t, now, row.ExportedAt)
}

func TestSettlementExportJobNoRows(t *testing.T) {
	warehouse := &stubWarehouse{}
	job := newExportJob(t, &stubRecords{}, warehouse, time.Now())
	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, warehouse.batches)
}

func TestSettlementExportJobPropagatesErrors(t *testing.T) {
	job := newExportJob(t, &stubRecords{err: errors.New("db down")}, &stubWarehouse{}, time.Now())
	assert.Error(t, job.Run(context.Background()))

	job = newExportJob(t, &stubRecords{rows: payments(1)}, &stubWarehouse{err: errors.New("quota")}, time.Now())
	assert.Error(t, job.Run(context.Background()))
}
