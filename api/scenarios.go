/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built portfolios that populate the property store with
	realistic parcels for demos. Every date is relative to the handler clock
	so a scenario always shows the same queue shape whenever it is loaded.

AVAILABLE SCENARIOS:

	due-now-mix:    One parcel per interesting timing state
	exceptions:     Parcels with data-quality defects
	closed-files:   Closed files mixed with open ones

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Build export records relative to today
 3. Convert through the property factory
 4. Save each property

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "due-now-mix"}

NOTE:

	Scenarios reset the store. The routes are only mounted in dev mode.

SEE ALSO:
  - factory/property.go: Record conversion
  - handlers.go: Compliance endpoints
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/factory"
)

// ScenarioStore is what a scenario load needs from a store.
type ScenarioStore interface {
	compliance.PropertyWriter
	Reset(ctx context.Context) error
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "due-now-mix",
		Name:        "Due-Now Mix",
		Description: "Overdue, in-grace, upcoming, completed and undated parcels across programs",
		Category:    "timing",
	},
	{
		ID:          "exceptions",
		Name:        "Data Exceptions",
		Description: "Missing emails, missing attempts, silent enforcement and stale contact",
		Category:    "exceptions",
	},
	{
		ID:          "closed-files",
		Name:        "Closed Files",
		Description: "Closed compliance files that stay out of the exceptions list",
		Category:    "exceptions",
	},
}

var scenarioBuilders = map[string]func(today time.Time) []factory.PropertyRecord{
	"due-now-mix":  dueNowMixRecords,
	"exceptions":   exceptionRecords,
	"closed-files": closedFileRecords,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads the requested dataset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	n, err := h.loadScenario(r.Context(), req.ScenarioID)
	if err != nil {
		if _, ok := scenarioBuilders[req.ScenarioID]; !ok {
			writeError(w, http.StatusBadRequest, "unknown scenario", err)
			return
		}
		h.Logger.Error("scenario load failed", "scenario", req.ScenarioID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, LoadScenarioResponse{Scenario: req.ScenarioID, Properties: n})
}

func (h *Handler) loadScenario(ctx context.Context, id string) (int, error) {
	n, err := LoadScenario(ctx, h.Scenarios, h.Factory, id, h.now())
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	h.Logger.Info("scenario loaded", "scenario", id, "properties", n)
	return n, nil
}

// LoadScenario resets st and writes the dataset id, dated relative to today.
func LoadScenario(ctx context.Context, st ScenarioStore, f *factory.PropertyFactory, id string, today time.Time) (int, error) {
	build, ok := scenarioBuilders[id]
	if !ok {
		return 0, fmt.Errorf("scenario %q not found", id)
	}
	props, err := f.FromRecords(build(today))
	if err != nil {
		return 0, fmt.Errorf("build scenario %s: %w", id, err)
	}

	if err := st.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset store: %w", err)
	}
	for _, p := range props {
		if err := st.SaveProperty(ctx, p); err != nil {
			return 0, fmt.Errorf("save property %s: %w", p.ID, err)
		}
	}
	return len(props), nil
}

// Scenarios lists the available demo datasets.
func Scenarios() []ScenarioDTO {
	return slices.Clone(scenarios)
}

// =============================================================================
// DATASETS
// =============================================================================

// daysAgo formats the calendar date n days before today.
func daysAgo(today time.Time, n int) string {
	return today.UTC().AddDate(0, 0, -n).Format("2006-01-02")
}

func buyer(id, name, email string) *factory.BuyerRecord {
	return &factory.BuyerRecord{ID: id, Name: name, Email: email}
}

func sentComm(action compliance.Action, at string) factory.CommunicationRecord {
	return factory.CommunicationRecord{Action: string(action), Status: string(compliance.CommSent), SentAt: at}
}

func dueNowMixRecords(today time.Time) []factory.PropertyRecord {
	return []factory.PropertyRecord{
		{
			// 1st attempt due at day 30, now 40 days late.
			ID: "fh-1001", ParcelID: "01-101-001", Address: "1412 Elm St",
			Program: "Featured Homes", DateSold: daysAgo(today, 70),
			Buyer: buyer("b-1001", "Maya Carter", "maya.carter@example.org"),
		},
		{
			// Sold recently; nothing due yet.
			ID: "fh-1002", ParcelID: "01-101-002", Address: "88 Walnut Ave",
			Program: "FH", DateSold: daysAgo(today, 20),
			Buyer: buyer("b-1002", "Luis Ortega", "luis.ortega@example.org"),
		},
		{
			// Two days into a three-day grace period.
			ID: "r4r-2001", ParcelID: "02-201-001", Address: "305 Cedar Ct",
			Program: "R4R", DateSold: daysAgo(today, 92),
			Buyer: buyer("b-2001", "Priya Nair", "priya.nair@example.org"),
		},
		{
			// Both attempts sent; the warning is 10 days late.
			ID: "demo-3001", ParcelID: "03-301-001", Address: "19 Foundry Rd",
			Program: "Demolition", DateSold: daysAgo(today, 130),
			Compliance1stAttempt: daysAgo(today, 40), Compliance2ndAttempt: daysAgo(today, 25),
			LastContactDate: daysAgo(today, 25), EnforcementLevel: 2,
			Buyer: buyer("b-3001", "Northside Builders LLC", "ops@northside.example.org"),
			Communications: []factory.CommunicationRecord{
				sentComm(compliance.ActionAttempt1, daysAgo(today, 40)),
				sentComm(compliance.ActionAttempt2, daysAgo(today, 25)),
			},
		},
		{
			// Every step sent.
			ID: "vip-4001", ParcelID: "04-401-001", Address: "7 Harbor View",
			Program: "VIP", DateSold: daysAgo(today, 75),
			Compliance1stAttempt: daysAgo(today, 60), Compliance2ndAttempt: daysAgo(today, 45),
			LastContactDate: daysAgo(today, 15), EnforcementLevel: 3,
			Buyer: buyer("b-4001", "Sam Whitfield", "sam.whitfield@example.org"),
			Communications: []factory.CommunicationRecord{
				sentComm(compliance.ActionAttempt1, daysAgo(today, 60)),
				sentComm(compliance.ActionAttempt2, daysAgo(today, 45)),
				sentComm(compliance.ActionWarning, daysAgo(today, 30)),
				sentComm(compliance.ActionDefaultNotice, daysAgo(today, 15)),
			},
		},
		{
			// No sale date; lands in the skipped channel.
			ID: "fh-1003", ParcelID: "01-101-003", Address: "240 Linden Pl",
			Program: "Featured Homes",
			Buyer:   buyer("b-1003", "Grace Kim", "grace.kim@example.org"),
		},
	}
}

func exceptionRecords(today time.Time) []factory.PropertyRecord {
	return []factory.PropertyRecord{
		{
			// No email, level 2 without attempts, nothing logged.
			ID: "fh-5001", ParcelID: "05-501-001", Address: "12 Orchard Ln",
			Program: "Featured Homes", DateSold: daysAgo(today, 120), EnforcementLevel: 2,
			Buyer: buyer("b-5001", "Dana Reese", ""),
		},
		{
			// 1st attempt logged but the 2nd never was.
			ID: "r4r-5002", ParcelID: "05-501-002", Address: "400 Birch St",
			Program: "Ready4Rehab", DateSold: daysAgo(today, 140),
			Compliance1stAttempt: daysAgo(today, 50), LastContactDate: daysAgo(today, 50),
			EnforcementLevel: 2,
			Buyer:            buyer("b-5002", "Omar Haddad", "omar.haddad@example.org"),
			Communications: []factory.CommunicationRecord{
				sentComm(compliance.ActionAttempt1, daysAgo(today, 50)),
			},
		},
		{
			// Last heard from 75 days ago.
			ID: "vip-5003", ParcelID: "05-501-003", Address: "66 Mill Race",
			Program: "VIP", DateSold: daysAgo(today, 200), LastContactDate: daysAgo(today, 75),
			Buyer: buyer("b-5003", "Rita Alvarez", "rita.alvarez@example.org"),
		},
		{
			// Clean.
			ID: "demo-5004", ParcelID: "05-501-004", Address: "3 Quarry Rd",
			Program: "Demolition", DateSold: daysAgo(today, 30), LastContactDate: daysAgo(today, 10),
			Buyer: buyer("b-5004", "Eastgate Demolition", "office@eastgate.example.org"),
		},
	}
}

func closedFileRecords(today time.Time) []factory.PropertyRecord {
	return []factory.PropertyRecord{
		{
			ID: "fh-6001", ParcelID: "06-601-001", Address: "901 Summit Ave",
			Program: "Featured Homes", DateSold: daysAgo(today, 900), Status: compliance.StatusClosed,
			EnforcementLevel: 4,
			Buyer:            buyer("b-6001", "Former Owner", ""),
		},
		{
			ID: "fh-6002", ParcelID: "06-601-002", Address: "903 Summit Ave",
			Program: "Featured Homes", DateSold: daysAgo(today, 100), EnforcementLevel: 1,
			Buyer: buyer("b-6002", "Current Owner", ""),
		},
	}
}
