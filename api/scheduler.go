/*
scheduler.go - Due-now snapshot scheduler

PURPOSE:
  Periodically computes the due-now queue and records a QueueRun with its
  counters (queue size, due now, skipped, most overdue, total penalty).
  Staff dashboards read the runs to see how the backlog moves over time.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Computes immediately on start, then on every tick
  - Failed computations are recorded as failed runs
  - Runs never feed back into timing; they are a read-only history

CONFIGURATION:
  - Interval: How often to compute (default: 1 hour)
  - Enabled: Whether the scheduler is active

USAGE:
  s := NewQueueScheduler(svc, runs, logger)
  s.Start()
  // ... later
  s.Stop()

SEE ALSO:
  - compliance/runs.go: QueueRun and RunStore
  - handlers.go: ListRuns endpoint
*/
package api

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// runTimeout bounds one snapshot computation.
const runTimeout = 2 * time.Minute

// QueueScheduler records due-now snapshots on an interval.
type QueueScheduler struct {
	Service  *compliance.Service
	Runs     compliance.RunStore
	Interval time.Duration
	Enabled  bool
	Clock    func() time.Time
	Logger   *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewQueueScheduler creates an enabled scheduler with an hourly interval.
func NewQueueScheduler(svc *compliance.Service, runs compliance.RunStore, logger *slog.Logger) *QueueScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueScheduler{
		Service:  svc,
		Runs:     runs,
		Interval: time.Hour,
		Enabled:  true,
		Clock:    time.Now,
		Logger:   logger.With("component", "scheduler"),
	}
}

// Start begins the scheduler.
func (s *QueueScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Logger.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.Logger.Info("scheduler started", "interval", s.Interval)
}

// Stop stops the scheduler and waits for an in-flight run.
func (s *QueueScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Logger.Info("scheduler stopped")
}

func (s *QueueScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.tick()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-stop:
			return
		}
	}
}

func (s *QueueScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if _, err := s.RunNow(ctx); err != nil {
		s.Logger.Error("queue run failed", "error", err)
	}
}

// RunNow computes one snapshot and records it. A failed computation is
// still recorded, with status failed.
func (s *QueueScheduler) RunNow(ctx context.Context) (compliance.QueueRun, error) {
	started := s.now()
	run := compliance.QueueRun{
		ID:        uuid.NewString(),
		AsOf:      generic.FromTime(started),
		StartedAt: started,
	}

	res, err := s.Service.DueNow(ctx, compliance.DueNowOptions{Today: run.AsOf})
	run.CompletedAt = s.now()
	if err != nil {
		run.Status = compliance.RunFailed
		run.Error = err.Error()
		run.TotalPenalty = generic.NewMoneyFromInt(0)
	} else {
		run.Status = compliance.RunCompleted
		run.Summarize(res)
	}

	if s.Runs != nil {
		if saveErr := s.Runs.SaveQueueRun(ctx, run); saveErr != nil {
			return run, fmt.Errorf("save queue run %s: %w", run.ID, saveErr)
		}
	}
	if err != nil {
		return run, err
	}

	s.Logger.Info("queue run",
		"run_id", run.ID,
		"as_of", run.AsOf.String(),
		"count", run.QueueCount,
		"due_now", run.DueNowCount,
		"skipped", run.SkippedCount,
		"max_days_overdue", run.MaxDaysOverdue,
		"total_penalty", run.TotalPenalty.String())
	return run, nil
}

// NextRunTime returns when the next scheduled run will occur.
func (s *QueueScheduler) NextRunTime() time.Time {
	return s.now().Add(s.Interval)
}

func (s *QueueScheduler) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}
