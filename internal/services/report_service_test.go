package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"labcash/internal/cache"
	"labcash/internal/core"
	"labcash/internal/finance"
	"labcash/internal/store"
	"labcash/internal/store/memory"
	"labcash/internal/summary"
)

var march = core.Month{Year: 2025, Month: 3}

type countingSnapshotter struct {
	inner Snapshotter
	calls atomic.Int32
	err   error
}

func (c *countingSnapshotter) Snapshot(ctx context.Context) (store.Snapshot, error) {
	c.calls.Add(1)
	if c.err != nil {
		return store.Snapshot{}, c.err
	}
	return c.inner.Snapshot(ctx)
}

type stubGenerator struct {
	text   string
	err    error
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.text, g.err
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s := store.New(memory.New())
	d := decimal.RequireFromString

	var ids []string
	for _, name := range []string{"Ali", "Sara", "Omar", "Hina"} {
		m, _, err := s.AddStaff(ctx, name, "")
		if err != nil {
			t.Fatalf("add staff: %v", err)
		}
		ids = append(ids, m.ID)
	}
	mustNoErr := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_, _, err := s.AddRevenue(ctx, core.NewDate(2025, 3, 2), core.Morning, d("6000"))
	mustNoErr(err)
	_, _, err = s.AddRevenue(ctx, core.NewDate(2025, 3, 10), core.Evening, d("4000"))
	mustNoErr(err)
	_, _, err = s.AddRevenue(ctx, core.NewDate(2025, 4, 1), core.Evening, d("999"))
	mustNoErr(err)
	_, _, err = s.AddExpense(ctx, core.NewDate(2025, 3, 5), d("500"), "Reagents", "")
	mustNoErr(err)
	_, _, err = s.AddAdvance(ctx, core.NewDate(2025, 3, 6), d("300"), ids[0], "")
	mustNoErr(err)
	return s
}

func TestMonthlyReport(t *testing.T) {
	svc := NewReportService(seededStore(t))
	r, err := svc.MonthlyReport(context.Background(), march)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	st := r.Statement
	if !st.TotalRevenue.Equal(decimal.NewFromInt(10000)) || !st.BaseSharePerStaff.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected statement %+v", st)
	}
	if len(r.Ledgers) != 4 || !r.Ledgers[0].NetPayable.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("unexpected ledgers %+v", r.Ledgers)
	}
	if len(r.DailyTotals) != 2 || r.DailyTotals[0].Day != 2 {
		t.Fatalf("unexpected daily totals %+v", r.DailyTotals)
	}
}

func TestMonthlyReportCaching(t *testing.T) {
	s := seededStore(t)
	snaps := &countingSnapshotter{inner: s}
	svc := NewReportService(snaps, WithCache(cache.NewLRUCache[finance.Report](12, time.Hour)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.MonthlyReport(ctx, march); err != nil {
			t.Fatalf("report: %v", err)
		}
	}
	if snaps.calls.Load() != 1 {
		t.Fatalf("expected one snapshot, got %d", snaps.calls.Load())
	}

	// Unrelated month keeps the cache, same month and roster changes drop it.
	svc.RecordChanged(ctx, store.RecordChanged{Collection: store.CollectionRevenue, Op: store.OpCreate, Month: "2025-04"})
	svc.MonthlyReport(ctx, march)
	if snaps.calls.Load() != 1 {
		t.Fatalf("unrelated change invalidated march")
	}
	svc.RecordChanged(ctx, store.RecordChanged{Collection: store.CollectionExpenses, Op: store.OpDelete, Month: "2025-03"})
	svc.MonthlyReport(ctx, march)
	if snaps.calls.Load() != 2 {
		t.Fatalf("march change did not invalidate")
	}
	svc.RecordChanged(ctx, store.RecordChanged{Collection: store.CollectionStaff, Op: store.OpCreate})
	svc.MonthlyReport(ctx, march)
	if snaps.calls.Load() != 3 {
		t.Fatalf("roster change did not invalidate")
	}
}

func TestCacheInvalidatedThroughStoreNotifier(t *testing.T) {
	ctx := context.Background()
	var svc *ReportService
	s := store.New(memory.New(), store.WithNotifier(store.Notifiers{notifierFunc(func(ctx context.Context, ev store.RecordChanged) error {
		return svc.RecordChanged(ctx, ev)
	})}))
	svc = NewReportService(s, WithCache(cache.NewLRUCache[finance.Report](12, time.Hour)))

	r, _ := svc.MonthlyReport(ctx, march)
	if !r.Statement.TotalRevenue.IsZero() {
		t.Fatalf("expected empty month")
	}
	if _, _, err := s.AddRevenue(ctx, core.NewDate(2025, 3, 3), core.Night, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	r, _ = svc.MonthlyReport(ctx, march)
	if !r.Statement.TotalRevenue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("stale report after write: %s", r.Statement.TotalRevenue)
	}
}

// racingSnapshotter records a write right after its first snapshot is
// taken, as a concurrent request would.
type racingSnapshotter struct {
	inner *store.Store
	write func()
	once  bool
}

func (r *racingSnapshotter) Snapshot(ctx context.Context) (store.Snapshot, error) {
	snap, err := r.inner.Snapshot(ctx)
	if !r.once {
		r.once = true
		r.write()
	}
	return snap, err
}

func TestReportBuiltBeforeWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	var svc *ReportService
	s := store.New(memory.New(), store.WithNotifier(store.Notifiers{notifierFunc(func(ctx context.Context, ev store.RecordChanged) error {
		return svc.RecordChanged(ctx, ev)
	})}))
	if _, _, err := s.AddRevenue(ctx, core.NewDate(2025, 3, 3), core.Morning, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("add: %v", err)
	}

	snaps := &racingSnapshotter{inner: s, write: func() {
		if _, _, err := s.AddRevenue(ctx, core.NewDate(2025, 3, 4), core.Morning, decimal.NewFromInt(5000)); err != nil {
			t.Errorf("add during report: %v", err)
		}
	}}
	svc = NewReportService(snaps, WithCache(cache.NewLRUCache[finance.Report](12, time.Hour)))

	if _, err := svc.MonthlyReport(ctx, march); err != nil {
		t.Fatalf("report: %v", err)
	}
	r, err := svc.MonthlyReport(ctx, march)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !r.Statement.TotalRevenue.Equal(decimal.NewFromInt(6000)) {
		t.Fatalf("total revenue = %s, want 6000", r.Statement.TotalRevenue)
	}

	// A report built with no change in between is cached.
	calls := &countingSnapshotter{inner: s}
	svc.records = calls
	svc.MonthlyReport(ctx, march)
	svc.MonthlyReport(ctx, march)
	if calls.calls.Load() != 0 {
		t.Fatalf("settled report was rebuilt %d times", calls.calls.Load())
	}
}

type notifierFunc func(context.Context, store.RecordChanged) error

func (f notifierFunc) RecordChanged(ctx context.Context, ev store.RecordChanged) error { return f(ctx, ev) }

func TestStaffLedger(t *testing.T) {
	s := seededStore(t)
	svc := NewReportService(s)
	ctx := context.Background()
	snap, _ := s.Snapshot(ctx)

	l, err := svc.StaffLedger(ctx, march, snap.Staff[0].ID)
	if err != nil || l.StaffName != "Ali" || !l.NetPayable.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("unexpected ledger %+v (err=%v)", l, err)
	}
	if _, err := svc.StaffLedger(ctx, march, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	gen := &stubGenerator{text: "Great month"}
	res, err := NewReportService(s, WithGenerator(gen, time.Second)).Summary(ctx, march)
	if err != nil || !res.Generated || res.Text != "Great month" {
		t.Fatalf("unexpected summary %+v (err=%v)", res, err)
	}
	if !strings.Contains(gen.prompt, "Total revenue: 10000 PKR") {
		t.Fatalf("prompt not built from march data:\n%s", gen.prompt)
	}

	failing := &stubGenerator{err: errors.New("boom")}
	res, err = NewReportService(s, WithGenerator(failing, 0)).Summary(ctx, march)
	if err != nil || res.Generated || res.Text != summary.MsgFailed {
		t.Fatalf("expected fallback, got %+v (err=%v)", res, err)
	}

	res, err = NewReportService(s).Summary(ctx, march)
	if err != nil || res.Text != summary.MsgMissingKey {
		t.Fatalf("expected missing key message, got %+v (err=%v)", res, err)
	}

	broken := &countingSnapshotter{err: errors.New("disk gone")}
	if _, err := NewReportService(broken, WithGenerator(gen, 0)).Summary(ctx, march); err == nil {
		t.Fatalf("store errors must be returned")
	}
}

func TestCurrentMonth(t *testing.T) {
	svc := NewReportService(nil, WithNow(func() time.Time { return time.Date(2025, 7, 31, 23, 0, 0, 0, time.UTC) }))
	if got := svc.CurrentMonth(); got != (core.Month{Year: 2025, Month: 7}) {
		t.Fatalf("CurrentMonth = %v", got)
	}
}
