package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCloseSpec runs the monthly close at 06:00 on the 1st.
const DefaultCloseSpec = "0 6 1 * *"

// Scheduler runs the monthly close: a final export of the month that just
// ended.
type Scheduler struct {
	cron    *cron.Cron
	worker  *ExportWorker
	spec    string
	timeout time.Duration
}

// NewScheduler uses the standard five-field cron syntax in loc.
func NewScheduler(spec string, w *ExportWorker, loc *time.Location) *Scheduler {
	if spec == "" {
		spec = DefaultCloseSpec
	}
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		worker:  w,
		spec:    spec,
		timeout: 2 * time.Minute,
	}
}

// Start registers the close job and starts the cron loop.
func (s *Scheduler) Start() error {
	slog.Info("Starting monthly close scheduler", "schedule", s.spec)
	if _, err := s.cron.AddFunc(s.spec, s.closePreviousMonth); err != nil {
		return fmt.Errorf("schedule monthly close %q: %w", s.spec, err)
	}
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running close to finish.
func (s *Scheduler) Stop() {
	slog.Info("Stopping monthly close scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) closePreviousMonth() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	m := s.worker.reports.CurrentMonth().Previous()
	slog.InfoContext(ctx, "Running monthly close", "month", m.String())
	if err := s.worker.Export(ctx, m); err != nil {
		slog.ErrorContext(ctx, "Monthly close failed", "month", m.String(), "error", err)
	}
}
