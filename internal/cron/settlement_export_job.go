package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/supplyhub-backend/internal/settlement"
	"github.com/angelmondragon/supplyhub-backend/pkg/bigquery"
	"github.com/angelmondragon/supplyhub-backend/pkg/db/models"
	"github.com/angelmondragon/supplyhub-backend/pkg/logger"
)

const (
	defaultExportDays     = 1
	settlementExportBatch = 500
)

type settlementRecords interface {
	Records(ctx context.Context, rng settlement.DateRange) ([]models.Payment, error)
}

type settlementWarehouse interface {
	InsertSettlements(ctx context.Context, rows []any) error
}

type SettlementExportJobParams struct {
	Logger     *logger.Logger
	Settlement settlementRecords
	Warehouse  settlementWarehouse
	Days       int
}

// NewSettlementExportJob streams the trailing window of ledger rows into the
// warehouse. Windows overlap between runs; rows carry their payment id as the
// insert id so repeats collapse.
func NewSettlementExportJob(params SettlementExportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Warehouse == nil {
		return nil, fmt.Errorf("warehouse client required")
	}
	days := params.Days
	if days <= 0 {
		days = defaultExportDays
	}
	return &settlementExportJob{
		logg:       params.Logger,
		settlement: params.Settlement,
		warehouse:  params.Warehouse,
		days:       days,
		now:        time.Now,
	}, nil
}

type settlementExportJob struct {
	logg       *logger.Logger
	settlement settlementRecords
	warehouse  settlementWarehouse
	days       int
	now        func() time.Time
}

func (j *settlementExportJob) Name() string { return "settlement-export" }

func (j *settlementExportJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	window := settlement.LastDays(now, j.days)
	records, err := j.settlement.Records(ctx, window)
	if err != nil {
		return fmt.Errorf("load settlement records: %w", err)
	}

	exported := 0
	for start := 0; start < len(records); start += settlementExportBatch {
		end := min(start+settlementExportBatch, len(records))
		rows := make([]any, 0, end-start)
		for _, payment := range records[start:end] {
			rows = append(rows, bigquery.NewSettlementRow(payment, now))
		}
		if err := j.warehouse.InsertSettlements(ctx, rows); err != nil {
			return fmt.Errorf("insert settlement rows %d-%d: %w", start, end, err)
		}
		exported += len(rows)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"from":          window.From,
		"to":            window.To,
		"rows_exported": exported,
	}), "settlement export complete")
	return nil
}
