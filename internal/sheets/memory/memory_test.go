package memory

import (
	"context"
	"testing"

	"labcash/internal/core"
	"labcash/internal/finance"
)

func TestWriterKeepsLatestReport(t *testing.T) {
	w := New()
	ctx := context.Background()
	m := core.Month{Year: 2025, Month: 3}

	if err := w.WriteMonthlyReport(ctx, finance.Report{Month: m}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteMonthlyReport(ctx, finance.Report{Month: m, Ledgers: make([]finance.Ledger, 2)}); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, ok := w.Report("2025-03")
	if !ok || len(r.Ledgers) != 2 {
		t.Fatalf("unexpected report %+v (ok=%v)", r, ok)
	}
	if w.Writes() != 2 {
		t.Fatalf("writes = %d", w.Writes())
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := w.WriteMonthlyReport(cancelled, finance.Report{Month: m}); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}
