package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"labcash/internal/cache"
	"labcash/internal/core"
	"labcash/internal/finance"
	"labcash/internal/store"
	"labcash/internal/summary"
)

// Snapshotter is the read side of the record store.
type Snapshotter interface {
	Snapshot(ctx context.Context) (store.Snapshot, error)
}

// SummaryResult is the AI narrative for a month. Generated is false when
// Text is a fallback message.
type SummaryResult struct {
	Month     core.Month `json:"month"`
	Text      string     `json:"text"`
	Generated bool       `json:"generated"`
}

// ReportService derives monthly reports from store snapshots. It never
// writes records.
type ReportService struct {
	records        Snapshotter
	cache          cache.Cache[finance.Report]
	generator      summary.Generator
	summaryTimeout time.Duration
	now            func() time.Time

	// mu orders cache fills against invalidations. Every change bumps the
	// generation of its month, or allGen when it affects every month.
	mu     sync.Mutex
	gens   map[string]uint64
	allGen uint64
}

type ReportOption func(*ReportService)

// WithCache caches reports per month. Pair it with the service as a
// store.Notifier so writes invalidate the cached months.
func WithCache(c cache.Cache[finance.Report]) ReportOption {
	return func(s *ReportService) { s.cache = c }
}

func WithGenerator(g summary.Generator, timeout time.Duration) ReportOption {
	return func(s *ReportService) {
		s.generator = g
		s.summaryTimeout = timeout
	}
}

func WithNow(now func() time.Time) ReportOption {
	return func(s *ReportService) { s.now = now }
}

func NewReportService(records Snapshotter, opts ...ReportOption) *ReportService {
	s := &ReportService{records: records, now: time.Now, gens: map[string]uint64{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentMonth is the default month for requests that do not name one.
func (s *ReportService) CurrentMonth() core.Month {
	return core.MonthOf(s.now())
}

func (s *ReportService) Period(ctx context.Context, m core.Month) (finance.Period, error) {
	snap, err := s.records.Snapshot(ctx)
	if err != nil {
		return finance.Period{}, fmt.Errorf("load records: %w", err)
	}
	return finance.FilterPeriod(m, snap), nil
}

func (s *ReportService) MonthlyReport(ctx context.Context, m core.Month) (finance.Report, error) {
	key := m.String()
	var gen uint64
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			return r, nil
		}
		gen = s.generation(key)
	}

	p, err := s.Period(ctx, m)
	if err != nil {
		return finance.Report{}, err
	}
	r := finance.BuildReport(p)

	if s.cache != nil {
		s.fill(key, gen, r)
	}
	slog.DebugContext(ctx, "Monthly report built",
		"month", key,
		"revenue_entries", len(p.Revenue),
		"staff", len(p.Staff))
	return r, nil
}

func (s *ReportService) Statement(ctx context.Context, m core.Month) (finance.Statement, error) {
	r, err := s.MonthlyReport(ctx, m)
	if err != nil {
		return finance.Statement{}, err
	}
	return r.Statement, nil
}

// StaffLedger returns the ledger of a roster member. Removed staff have no
// ledger; their advances appear in the report's orphan list.
func (s *ReportService) StaffLedger(ctx context.Context, m core.Month, staffID string) (finance.Ledger, error) {
	r, err := s.MonthlyReport(ctx, m)
	if err != nil {
		return finance.Ledger{}, err
	}
	for _, l := range r.Ledgers {
		if l.StaffID == staffID {
			return l, nil
		}
	}
	return finance.Ledger{}, fmt.Errorf("ledger for staff %q: %w", staffID, store.ErrNotFound)
}

// Summary asks the generator for a narrative. Generator failures become a
// fallback message; only store errors are returned.
func (s *ReportService) Summary(ctx context.Context, m core.Month) (SummaryResult, error) {
	p, err := s.Period(ctx, m)
	if err != nil {
		return SummaryResult{}, err
	}
	res := SummaryResult{Month: m}
	if s.generator == nil {
		res.Text = summary.MsgMissingKey
		return res, nil
	}

	prompt := summary.BuildPrompt(m, finance.ComputeStatement(p), p.Revenue)
	if s.summaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.summaryTimeout)
		defer cancel()
	}

	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.WarnContext(ctx, "AI summary failed", "month", m.String(), "error", err)
		res.Text = summary.FallbackMessage(err)
		return res, nil
	}
	res.Text = text
	res.Generated = true
	return res, nil
}

// RecordChanged implements store.Notifier by dropping cached reports the
// change could affect.
func (s *ReportService) RecordChanged(_ context.Context, ev store.RecordChanged) error {
	if s.cache == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Month == "" {
		s.allGen++
		s.cache.Clear()
		return nil
	}
	s.gens[ev.Month]++
	s.cache.Delete(ev.Month)
	return nil
}

func (s *ReportService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key] + s.allGen
}

// fill caches r unless a change to its month arrived after gen was read,
// in which case r may predate that change.
func (s *ReportService) fill(key string, gen uint64, r finance.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[key]+s.allGen != gen {
		slog.Debug("Skipped caching superseded report", "month", key)
		return
	}
	s.cache.Set(key, r)
}
