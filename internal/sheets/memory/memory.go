// Package memory is a StatementWriter that keeps reports in process. The
// worker falls back to it when no spreadsheet is configured.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"labcash/internal/finance"
	"labcash/internal/sheets"
)

var _ sheets.StatementWriter = (*Writer)(nil)

type Writer struct {
	mu      sync.Mutex
	reports map[string]finance.Report
	writes  int
}

func New() *Writer {
	return &Writer{reports: make(map[string]finance.Report)}
}

func (w *Writer) WriteMonthlyReport(ctx context.Context, r finance.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports[r.Month.String()] = r
	w.writes++
	slog.DebugContext(ctx, "Report kept in memory", "month", r.Month.String())
	return nil
}

// Report returns the last report written for month (YYYY-MM).
func (w *Writer) Report(month string) (finance.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.reports[month]
	return r, ok
}

// Writes counts calls to WriteMonthlyReport.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
