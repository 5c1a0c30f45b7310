package api

import (
	"time"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// COMPLIANCE RESPONSES
// =============================================================================

// DueNowResponse is the body of GET /api/compliance?type=due-now.
type DueNowResponse struct {
	Count      int                    `json:"count"`
	ComputedAt time.Time              `json:"computedAt"`
	Queue      []compliance.QueueItem `json:"queue"`
}

// ExceptionsResponse is the body of GET /api/compliance?type=exceptions.
type ExceptionsResponse struct {
	Count      int                             `json:"count"`
	ComputedAt time.Time                       `json:"computedAt"`
	Exceptions []compliance.PropertyExceptions `json:"exceptions"`
}

// RulesResponse lists the rule table.
type RulesResponse struct {
	Count int               `json:"count"`
	Rules []compliance.Rule `json:"rules"`
}

// MilestonesResponse is a milestone preview for a program and sale date.
type MilestonesResponse struct {
	Program    string                 `json:"program"`
	SaleDate   *generic.TimePoint     `json:"saleDate"`
	Milestones []compliance.Milestone `json:"milestones"`
	Next       *compliance.Milestone  `json:"next,omitempty"`
}

// PenaltyResponse is the enforcement outcome for a days-overdue value.
type PenaltyResponse struct {
	DaysOverdue int            `json:"daysOverdue"`
	Level       int            `json:"level"`
	LevelName   string         `json:"levelName"`
	Penalty     generic.Amount `json:"penalty"`
}

// RunsResponse lists recorded queue runs.
type RunsResponse struct {
	Count int                   `json:"count"`
	Runs  []compliance.QueueRun `json:"runs"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what a scenario load wrote.
type LoadScenarioResponse struct {
	Scenario   string `json:"scenario"`
	Properties int    `json:"properties"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// InternalErrorResponse is the 500 body of the compliance endpoint.
type InternalErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
