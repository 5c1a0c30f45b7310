package compliance

import (
	"context"
	"time"

	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// QUEUE RUNS - Recorded due-now snapshots
// =============================================================================

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// QueueRun summarizes one scheduled due-now computation. Runs are the only
// thing the engine itself persists; they never feed back into timing.
type QueueRun struct {
	ID             string            `json:"id"`
	AsOf           generic.TimePoint `json:"asOf"`
	Status         string            `json:"status"`
	QueueCount     int               `json:"queueCount"`
	DueNowCount    int               `json:"dueNowCount"`
	SkippedCount   int               `json:"skippedCount"`
	MaxDaysOverdue int               `json:"maxDaysOverdue"`
	TotalPenalty   generic.Amount    `json:"totalPenalty"`
	Error          string            `json:"error,omitempty"`
	StartedAt      time.Time         `json:"startedAt"`
	CompletedAt    time.Time         `json:"completedAt"`
}

// RunStore persists queue runs.
type RunStore interface {
	SaveQueueRun(ctx context.Context, r QueueRun) error
	// ListQueueRuns returns the most recent runs first. limit <= 0 means all.
	ListQueueRuns(ctx context.Context, limit int) ([]QueueRun, error)
}

// Summarize fills the counters of r from a due-now result.
func (r *QueueRun) Summarize(res DueNowResult) {
	r.QueueCount = len(res.Queue)
	r.SkippedCount = len(res.Skipped)
	r.DueNowCount = 0
	r.MaxDaysOverdue = 0
	r.TotalPenalty = generic.NewMoneyFromInt(0)
	for i, item := range res.Queue {
		if item.IsDueNow {
			r.DueNowCount++
		}
		if i == 0 || item.DaysOverdue > r.MaxDaysOverdue {
			r.MaxDaysOverdue = item.DaysOverdue
		}
		r.TotalPenalty = r.TotalPenalty.Add(item.Penalty)
	}
}
