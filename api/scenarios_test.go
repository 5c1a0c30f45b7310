package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
)

func TestListScenarios(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodGet, "/api/scenarios", "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(scenarios))
	for _, s := range got {
		assert.Contains(t, scenarioBuilders, s.ID)
	}
}

func TestScenarioRoutesHiddenWithoutStore(t *testing.T) {
	h, _ := newTestHandler(t)
	h.Scenarios = nil

	rec := serve(t, h, http.MethodGet, "/api/scenarios", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoadScenario_DueNowMix(t *testing.T) {
	// GIVEN: a store with leftover data
	h, mem := newTestHandler(t, featured("leftover", 3))

	// WHEN: loading the due-now mix
	rec := serve(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"due-now-mix"}`)

	// THEN: the store holds only the scenario and the queue has its shape
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 6, decode[LoadScenarioResponse](t, rec).Properties)
	assert.Equal(t, 6, mem.Len())

	queue := decode[DueNowResponse](t, serve(t, h, http.MethodGet, "/api/compliance", ""))
	require.Len(t, queue.Queue, 5)
	days := make([]int, len(queue.Queue))
	for i, item := range queue.Queue {
		days[i] = item.DaysOverdue
	}
	assert.Equal(t, []int{40, 10, 2, 0, -10}, days)
	assert.Equal(t, generic.PropertyID("fh-1001"), queue.Queue[0].ID)
	assert.Equal(t, compliance.ActionWarning, queue.Queue[1].RecommendedAction)
	assert.Equal(t, compliance.ActionNone, queue.Queue[3].RecommendedAction)

	dueOnly := decode[DueNowResponse](t, serve(t, h, http.MethodGet, "/api/compliance?dueOnly=true", ""))
	assert.Equal(t, 2, dueOnly.Count)

	current := decode[ScenarioDTO](t, serve(t, h, http.MethodGet, "/api/scenarios/current", ""))
	assert.Equal(t, "due-now-mix", current.ID)
}

func TestLoadScenario_Exceptions(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusOK, serve(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"exceptions"}`).Code)

	resp := decode[ExceptionsResponse](t, serve(t, h, http.MethodGet, "/api/compliance?type=exceptions", ""))

	require.Equal(t, 3, resp.Count)
	assert.Equal(t, generic.PropertyID("fh-5001"), resp.Exceptions[0].ID)
	assert.Equal(t, "missing_email,missing_1st_attempt,no_communications", compliance.IssueTypes(resp.Exceptions[0].Issues))
}

func TestLoadScenario_ClosedFilesExcluded(t *testing.T) {
	h, _ := newTestHandler(t)
	require.Equal(t, http.StatusOK, serve(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"closed-files"}`).Code)

	resp := decode[ExceptionsResponse](t, serve(t, h, http.MethodGet, "/api/compliance?type=exceptions", ""))

	require.Len(t, resp.Exceptions, 1)
	assert.Equal(t, generic.PropertyID("fh-6002"), resp.Exceptions[0].ID)
}

func TestLoadScenario_Unknown(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown scenario", decode[ErrorResponse](t, rec).Error)
}

func TestLoadScenario_BadBody(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(t, h, http.MethodPost, "/api/scenarios/load", `{"scenario":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
