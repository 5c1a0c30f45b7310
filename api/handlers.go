/*
handlers.go - HTTP API handlers for the compliance engine

PURPOSE:
  Exposes the compliance timing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the compliance
  package.

ENDPOINTS:
  Compliance:
    GET  /api/compliance?type=due-now    Prioritized due-now queue
    GET  /api/compliance?type=exceptions Data-quality exceptions
    GET  /api/compliance/rules           Rule table
    GET  /api/compliance/milestones      Milestone preview
    GET  /api/compliance/penalty         Level + penalty for days overdue
    GET  /api/compliance/runs            Recorded scheduler runs

  Properties:
    GET  /api/properties/{id}/timing     Verdict, milestones, issues

  Scenarios (dev only):
    GET  /api/scenarios                  List demo datasets
    POST /api/scenarios/load             Load a demo dataset

QUERY PARAMETERS (/api/compliance):
  type     due-now | exceptions; anything else means due-now
  program  program label, "all" or empty for every program
  dueOnly  "true" keeps only properties past grace
  asOf     YYYY-MM-DD, pins "today" (defaults to the handler clock)

ERROR HANDLING:
  - 400: bad asOf, saleDate or daysOverdue
  - 404: property not found
  - 500: store failures; the compliance endpoint answers
         {"error": "Internal server error", "message": ...}

SEE ALSO:
  - dto.go: Response data structures
  - scenarios.go: Demo dataset loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/factory"
	"github.com/landbank/compliance-engine/generic"
)

// cacheControl lets a CDN serve results for five minutes and revalidate for ten.
const cacheControl = "s-maxage=300, stale-while-revalidate=600"

const defaultRunsLimit = 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *compliance.Service
	// Runs is optional; without it /api/compliance/runs returns an empty list.
	Runs compliance.RunStore
	// Scenarios is optional; without it the scenario routes are not mounted.
	Scenarios ScenarioStore
	Factory   *factory.PropertyFactory
	Clock     func() time.Time
	Logger    *slog.Logger
	StoreName string

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over the given service.
func NewHandler(svc *compliance.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Service: svc,
		Factory: factory.NewPropertyFactory(),
		Clock:   time.Now,
		Logger:  logger,
	}
}

func (h *Handler) now() time.Time {
	if h.Clock == nil {
		return time.Now().UTC()
	}
	return h.Clock().UTC()
}

// asOf resolves the instant a request is evaluated at. The asOf query
// parameter overrides the clock.
func (h *Handler) asOf(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("asOf"))
	if raw == "" {
		return h.now(), nil
	}
	tp, err := generic.ParseDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	return tp.Time, nil
}

// =============================================================================
// COMPLIANCE ENDPOINT
// =============================================================================

// GetCompliance serves the due-now queue or the exceptions list.
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	at, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asOf", err)
		return
	}

	switch r.URL.Query().Get("type") {
	case "exceptions":
		h.exceptions(w, r, at)
	default:
		h.dueNow(w, r, at)
	}
}

func (h *Handler) dueNow(w http.ResponseWriter, r *http.Request, at time.Time) {
	q := r.URL.Query()
	res, err := h.Service.DueNow(r.Context(), compliance.DueNowOptions{
		Program: programFilter(q.Get("program")),
		DueOnly: q.Get("dueOnly") == "true",
		Today:   generic.FromTime(at),
	})
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControl)
	writeJSON(w, http.StatusOK, DueNowResponse{
		Count:      len(res.Queue),
		ComputedAt: at,
		Queue:      res.Queue,
	})
}

func (h *Handler) exceptions(w http.ResponseWriter, r *http.Request, at time.Time) {
	out, err := h.Service.Exceptions(r.Context(), generic.FromTime(at))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControl)
	writeJSON(w, http.StatusOK, ExceptionsResponse{
		Count:      len(out),
		ComputedAt: at,
		Exceptions: out,
	})
}

// programFilter normalizes the program query parameter. Empty and "all"
// mean no filter.
func programFilter(label string) string {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, "all") {
		return ""
	}
	return string(factory.ParseProgram(label))
}

// =============================================================================
// SUPPORTING READ ENDPOINTS
// =============================================================================

// ListRules returns the rule table.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules := compliance.AllRules()
	writeJSON(w, http.StatusOK, RulesResponse{Count: len(rules), Rules: rules})
}

// PreviewMilestones dates a program's milestones from a sale date.
func (h *Handler) PreviewMilestones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	program := string(factory.ParseProgram(q.Get("program")))
	if program == "" {
		writeError(w, http.StatusBadRequest, "program is required", nil)
		return
	}

	var saleDate *generic.TimePoint
	if raw := strings.TrimSpace(q.Get("saleDate")); raw != "" {
		t, err := factory.ParseRecordDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid saleDate", err)
			return
		}
		saleDate = generic.FromTimePtr(&t)
	}

	at, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asOf", err)
		return
	}

	ms := compliance.GenerateMilestones(program, saleDate)
	resp := MilestonesResponse{Program: program, SaleDate: saleDate, Milestones: ms}
	if next, ok := compliance.NextMilestone(ms, generic.FromTime(at)); ok {
		resp.Next = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPenalty returns the enforcement level and penalty for a days-overdue value.
func (h *Handler) GetPenalty(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("daysOverdue")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "daysOverdue must be an integer", err)
		return
	}
	level := compliance.CalculateEnforcementLevel(days)
	writeJSON(w, http.StatusOK, PenaltyResponse{
		DaysOverdue: days,
		Level:       level,
		LevelName:   compliance.EnforcementLevelName(level),
		Penalty:     compliance.CalculatePenalty(days),
	})
}

// GetPropertyTiming returns the full compliance picture of one property.
func (h *Handler) GetPropertyTiming(w http.ResponseWriter, r *http.Request) {
	id := generic.PropertyID(chi.URLParam(r, "id"))
	at, err := h.asOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asOf", err)
		return
	}

	report, err := h.Service.PropertyTiming(r.Context(), id, generic.FromTime(at))
	if err != nil {
		if generic.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "property not found", err)
			return
		}
		h.Logger.Error("property timing failed", "property_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load property", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListRuns returns the most recent scheduler runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	runs := []compliance.QueueRun{}
	if h.Runs != nil {
		got, err := h.Runs.ListQueueRuns(r.Context(), limit)
		if err != nil {
			h.Logger.Error("list queue runs failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list runs", err)
			return
		}
		if got != nil {
			runs = got
		}
	}
	writeJSON(w, http.StatusOK, RunsResponse{Count: len(runs), Runs: runs})
}

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and, when the store supports it, connectivity.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Service.Store.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable",
				fmt.Errorf("%w: %v", generic.ErrStoreUnavailable, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: h.StoreName})
}

// =============================================================================
// METHOD HANDLING
// =============================================================================

// Preflight answers bare OPTIONS requests that CORS passes through.
func Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// MethodNotAllowed answers unsupported methods with JSON.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, OPTIONS")
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error: fmt.Sprintf("Method %s not allowed", r.Method),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.Error("compliance request failed",
		"path", r.URL.Path, "type", r.URL.Query().Get("type"), "error", err)
	writeJSON(w, http.StatusInternalServerError, InternalErrorResponse{
		Error:   "Internal server error",
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
