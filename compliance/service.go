package compliance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// SERVICE - Fetch from the store, aggregate in memory
// =============================================================================

// Service answers the compliance views over a PropertyStore.
type Service struct {
	Store  PropertyStore
	Logger *slog.Logger
}

// NewService creates a Service. A nil logger falls back to slog.Default.
func NewService(store PropertyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Store: store, Logger: logger}
}

// DueNowOptions parameterizes a due-now computation.
type DueNowOptions struct {
	Program string
	DueOnly bool
	Today   generic.TimePoint
}

// DueNow builds the due-now queue as of opts.Today.
func (s *Service) DueNow(ctx context.Context, opts DueNowOptions) (DueNowResult, error) {
	props, err := s.Store.FindProperties(ctx, PropertyQuery{
		Program:             opts.Program,
		CommunicationStatus: CommSent,
	})
	if err != nil {
		return DueNowResult{}, fmt.Errorf("fetch due-now properties: %w", err)
	}

	res := BuildDueNowQueue(props, opts.Today, opts.DueOnly)
	for _, sk := range res.Skipped {
		s.Logger.Warn("skipped property", "property_id", sk.ID, "reason", sk.Reason)
	}
	s.Logger.Debug("due-now computed",
		"program", opts.Program, "due_only", opts.DueOnly,
		"count", len(res.Queue), "skipped", len(res.Skipped))
	return res, nil
}

// Exceptions lists open properties with data-quality issues.
func (s *Service) Exceptions(ctx context.Context, today generic.TimePoint) ([]PropertyExceptions, error) {
	props, err := s.Store.FindProperties(ctx, PropertyQuery{
		ExcludeStatuses: []string{StatusClosed},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch exception properties: %w", err)
	}
	out := DetectExceptions(props, today)
	s.Logger.Debug("exceptions computed", "count", len(out))
	return out, nil
}

// PropertyReport is the full compliance picture of one property.
type PropertyReport struct {
	Property   FlatProperty `json:"property"`
	Timing     Verdict      `json:"timing"`
	Milestones []Milestone  `json:"milestones"`
	Issues     []Issue      `json:"issues"`
	LevelName  string       `json:"levelName"`
}

// PropertyTiming returns verdict, milestones and issues for one property.
func (s *Service) PropertyTiming(ctx context.Context, id generic.PropertyID, today generic.TimePoint) (PropertyReport, error) {
	p, err := s.Store.GetProperty(ctx, id)
	if err != nil {
		return PropertyReport{}, fmt.Errorf("get property %s: %w", id, err)
	}

	flat := Flatten(p)
	v := ComputeTiming(flat, today)
	issues := DetectIssues(p, today)
	if issues == nil {
		issues = []Issue{}
	}
	return PropertyReport{
		Property:   flat,
		Timing:     v,
		Milestones: GenerateMilestones(p.ProgramType, generic.FromTimePtr(p.DateSold)),
		Issues:     issues,
		LevelName:  EnforcementLevelName(v.RecommendedLevel),
	}, nil
}
