// Package worker keeps the spreadsheet in step with the records: it
// re-exports months named by change notifications and closes each month
// on a schedule.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"labcash/internal/amqp"
	"labcash/internal/core"
	"labcash/internal/finance"
	"labcash/internal/sheets"
	"labcash/internal/storage"
)

// ReportSource builds the report for a month.
type ReportSource interface {
	MonthlyReport(ctx context.Context, m core.Month) (finance.Report, error)
	CurrentMonth() core.Month
}

// ExportJournal remembers which months were exported and with what revenue.
type ExportJournal interface {
	MarkExported(ctx context.Context, month, revenue string) error
	LastExport(ctx context.Context, month string) (storage.ExportRecord, bool, error)
}

// ExportWorker debounces change notifications per month and writes the
// rebuilt report of each month once things settle.
type ExportWorker struct {
	reports  ReportSource
	writer   sheets.StatementWriter
	journal  ExportJournal
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*pendingExport
	due     chan core.Month
	done    chan struct{}
	once    sync.Once

	// exportMu serializes writes so the scheduler and the consumer never
	// write the same tabs at once.
	exportMu sync.Mutex
}

type pendingExport struct {
	timer *time.Timer
}

// NewExportWorker creates a worker. journal may be nil.
func NewExportWorker(reports ReportSource, writer sheets.StatementWriter, journal ExportJournal, debounce time.Duration) *ExportWorker {
	return &ExportWorker{
		reports:  reports,
		writer:   writer,
		journal:  journal,
		debounce: debounce,
		pending:  make(map[string]*pendingExport),
		due:      make(chan core.Month, 16),
		done:     make(chan struct{}),
	}
}

// HandleMessage schedules the months touched by a change. Changes without
// a month (roster edits, imports) refresh the current and previous month.
// Malformed months are logged and dropped so the message is not requeued
// forever.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	slog.InfoContext(ctx, "Processing record change",
		"collection", msg.Collection,
		"op", msg.Op,
		"record_id", msg.ID,
		"month", msg.Month)

	if msg.AllMonths() {
		current := w.reports.CurrentMonth()
		w.Schedule(current)
		w.Schedule(current.Previous())
		return nil
	}

	m, err := core.ParseMonth(msg.Month)
	if err != nil {
		slog.WarnContext(ctx, "Dropping record change with invalid month",
			"month", msg.Month,
			"error", err)
		return nil
	}
	w.Schedule(m)
	return nil
}

// Schedule queues an export of m after the debounce delay. Scheduling a
// month that is already waiting restarts its delay.
func (w *ExportWorker) Schedule(m core.Month) {
	key := m.String()

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[key]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}

	p := &pendingExport{}
	w.pending[key] = p
	p.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[key] == p {
			delete(w.pending, key)
		}
		w.mu.Unlock()
		select {
		case w.due <- m:
		case <-w.done:
		}
	})
}

// Pending returns how many months are waiting for their debounce delay.
func (w *ExportWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run exports due months until ctx is cancelled. Failed exports are
// logged; the next change to the month retries them.
func (w *ExportWorker) Run(ctx context.Context) error {
	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-w.due:
			if err := w.Export(ctx, m); err != nil {
				slog.ErrorContext(ctx, "Export failed", "month", m.String(), "error", err)
			}
		}
	}
}

func (w *ExportWorker) stopTimers() {
	w.once.Do(func() { close(w.done) })
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, key)
	}
}

// Export rebuilds the report for m and writes it to the spreadsheet.
func (w *ExportWorker) Export(ctx context.Context, m core.Month) error {
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	start := time.Now()
	r, err := w.reports.MonthlyReport(ctx, m)
	if err != nil {
		return fmt.Errorf("build report %s: %w", m, err)
	}
	if err := w.writer.WriteMonthlyReport(ctx, r); err != nil {
		return fmt.Errorf("write report %s: %w", m, err)
	}

	revenue := r.Statement.TotalRevenue.String()
	if w.journal != nil {
		if err := w.journal.MarkExported(ctx, m.String(), revenue); err != nil {
			// The sheet is already written.
			slog.WarnContext(ctx, "Failed to record export", "month", m.String(), "error", err)
		}
	}

	slog.InfoContext(ctx, "Exported monthly report",
		"month", m.String(),
		"amount", revenue,
		"staff", len(r.Ledgers),
		"duration", time.Since(start))
	return nil
}

// StartupCheck exports the current and previous month when the journal has
// no export for them or the exported revenue no longer matches. Without a
// journal both months are exported. It recovers changes missed while the
// worker was down.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	current := w.reports.CurrentMonth()
	var firstErr error
	for _, m := range []core.Month{current.Previous(), current} {
		stale, err := w.isStale(ctx, m)
		if err != nil {
			slog.WarnContext(ctx, "Could not check export journal", "month", m.String(), "error", err)
			stale = true
		}
		if !stale {
			slog.InfoContext(ctx, "Export is up to date", "month", m.String())
			continue
		}
		if err := w.Export(ctx, m); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *ExportWorker) isStale(ctx context.Context, m core.Month) (bool, error) {
	if w.journal == nil {
		return true, nil
	}
	rec, ok, err := w.journal.LastExport(ctx, m.String())
	if err != nil || !ok {
		return true, err
	}
	r, err := w.reports.MonthlyReport(ctx, m)
	if err != nil {
		return true, err
	}
	return rec.Revenue != r.Statement.TotalRevenue.String(), nil
}
