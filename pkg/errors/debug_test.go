package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpCapturesChainAndCode(t *testing.T) {
	err := fmt.Errorf("apply order: %w", Wrap(CodeConflict, fmt.Errorf("stale version"), "order changed"))

	d := Dump(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %q", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", d.Chain)
	}
	if d.PG != nil || d.Retryable {
		t.Fatalf("expected no postgres diagnostics, got %+v", d)
	}
	if got := Dump(nil); got.TopMessage != "" || got.Chain != nil {
		t.Fatalf("expected empty dump for nil, got %+v", got)
	}
}

func TestDumpPostgresDiagnostics(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "40P01", Message: "deadlock detected", TableName: "products"}
	d := Dump(fmt.Errorf("lock product: %w", pgxErr))
	if d.PG == nil || d.PG.Code != "40P01" || d.PG.Table != "products" {
		t.Fatalf("unexpected pgx diagnostics %+v", d.PG)
	}
	if !d.Retryable {
		t.Fatalf("deadlock should be retryable")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "orders_external_order_id_key"}
	d = Dump(pqErr)
	if d.PG == nil || d.PG.Constraint != "orders_external_order_id_key" {
		t.Fatalf("unexpected pq diagnostics %+v", d.PG)
	}
	if d.Retryable {
		t.Fatalf("unique violation should not be retryable")
	}
}
