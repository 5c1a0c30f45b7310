package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/generic"
	"github.com/landbank/compliance-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func day(year int, month time.Month, d int) *time.Time {
	t := generic.NewTimePoint(year, month, d).Time
	return &t
}

func property(id, program string, sold *time.Time) compliance.Property {
	return compliance.Property{
		ID:          generic.PropertyID(id),
		ParcelID:    generic.ParcelID("P-" + id),
		Address:     id + " Oak Ave",
		ProgramType: program,
		DateSold:    sold,
		Status:      "active",
		Buyer:       &compliance.Buyer{ID: "b-" + id, Name: "Buyer " + id, Email: id + "@example.org"},
	}
}

// =============================================================================
// PROPERTY STORE TESTS
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	// GIVEN: a property with buyer, attempts and mixed communications
	// WHEN: saved and read back
	// THEN: every field survives
	store := newTestStore(t)
	ctx := context.Background()

	p := property("a", "FeaturedHomes", day(2024, time.January, 15))
	p.Compliance1stAttempt = day(2024, time.February, 20)
	p.LastContactDate = day(2024, time.March, 1)
	p.EnforcementLevel = 2
	p.Communications = []compliance.Communication{
		{ID: "c1", Action: compliance.ActionAttempt1, Status: compliance.CommSent, SentAt: day(2024, time.February, 20)},
		{ID: "c2", Action: compliance.ActionAttempt2, Status: compliance.CommFailed},
	}
	require.NoError(t, store.SaveProperty(ctx, p))

	got, err := store.GetProperty(ctx, "a")

	require.NoError(t, err)
	assert.Equal(t, p.ParcelID, got.ParcelID)
	assert.Equal(t, p.ProgramType, got.ProgramType)
	assert.Equal(t, 2, got.EnforcementLevel)
	require.NotNil(t, got.DateSold)
	assert.True(t, p.DateSold.Equal(*got.DateSold))
	require.NotNil(t, got.Compliance1stAttempt)
	assert.Nil(t, got.Compliance2ndAttempt)
	require.NotNil(t, got.Buyer)
	assert.Equal(t, "a@example.org", got.Buyer.Email)
	require.Len(t, got.Communications, 2)
	assert.Equal(t, generic.PropertyID("a"), got.Communications[0].PropertyID)
}

func TestStore_GetPropertyNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetProperty(context.Background(), "nope")
	assert.True(t, generic.IsNotFound(err))
}

func TestStore_FindPropertiesFiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProperty(ctx, property("late", "VIP", day(2024, time.May, 1))))
	require.NoError(t, store.SaveProperty(ctx, property("early", "VIP", day(2024, time.January, 1))))
	require.NoError(t, store.SaveProperty(ctx, property("undated", "VIP", nil)))
	require.NoError(t, store.SaveProperty(ctx, property("other", "Demolition", day(2023, time.June, 1))))
	closed := property("closed", "VIP", day(2024, time.February, 1))
	closed.Status = compliance.StatusClosed
	require.NoError(t, store.SaveProperty(ctx, closed))

	// WHEN: filtering by program, excluding closed
	props, err := store.FindProperties(ctx, compliance.PropertyQuery{
		Program:         "VIP",
		ExcludeStatuses: []string{compliance.StatusClosed},
	})

	// THEN: sale date ascending, undated last
	require.NoError(t, err)
	ids := make([]generic.PropertyID, len(props))
	for i, p := range props {
		ids[i] = p.ID
	}
	assert.Equal(t, []generic.PropertyID{"early", "late", "undated"}, ids)
}

func TestStore_FindPropertiesCommunicationStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := property("a", "VIP", day(2024, time.January, 1))
	p.Communications = []compliance.Communication{
		{ID: "c1", Action: compliance.ActionAttempt1, Status: compliance.CommSent},
		{ID: "c2", Action: compliance.ActionAttempt2, Status: compliance.CommLogged},
	}
	require.NoError(t, store.SaveProperty(ctx, p))

	props, err := store.FindProperties(ctx, compliance.PropertyQuery{CommunicationStatus: compliance.CommSent})

	require.NoError(t, err)
	require.Len(t, props, 1)
	require.Len(t, props[0].Communications, 1)
	assert.Equal(t, "c1", props[0].Communications[0].ID)
}

func TestStore_SaveReplacesCommunications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := property("a", "VIP", day(2024, time.January, 1))
	p.Communications = []compliance.Communication{{ID: "c1", Action: compliance.ActionAttempt1, Status: compliance.CommSent}}
	require.NoError(t, store.SaveProperty(ctx, p))

	p.Communications = nil
	p.EnforcementLevel = 1
	require.NoError(t, store.SaveProperty(ctx, p))

	got, err := store.GetProperty(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got.Communications)
	assert.Equal(t, 1, got.EnforcementLevel)

	n, err := store.CountProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_UnparsableSaleDateReadsAsNil(t *testing.T) {
	// GIVEN: a dirty sale date written by the sync bridge
	// THEN: the property reads back undated and lands in the skipped channel
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProperty(ctx, property("dirty", "VIP", day(2024, time.January, 1))))
	require.NoError(t, store.SetRawSaleDate(ctx, "dirty", "sometime in spring"))

	svc := compliance.NewService(store, nil)
	res, err := svc.DueNow(ctx, compliance.DueNowOptions{Today: generic.NewTimePoint(2024, time.June, 1)})

	require.NoError(t, err)
	assert.Empty(t, res.Queue)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, compliance.ReasonMissingSaleDate, res.Skipped[0].Reason)
}

// =============================================================================
// RUN STORE TESTS
// =============================================================================

func TestStore_QueueRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, time.June, 1, 6, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-1", "run-2"} {
		require.NoError(t, store.SaveQueueRun(ctx, compliance.QueueRun{
			ID:           id,
			AsOf:         generic.NewTimePoint(2024, time.June, 1),
			Status:       compliance.RunCompleted,
			QueueCount:   3 + i,
			TotalPenalty: generic.NewMoneyFromInt(750),
			StartedAt:    start.Add(time.Duration(i) * time.Hour),
			CompletedAt:  start.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := store.ListQueueRuns(ctx, 1)

	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 4, runs[0].QueueCount)
	assert.Equal(t, "2024-06-01", runs[0].AsOf.String())
	assert.True(t, generic.NewMoneyFromInt(750).Equal(runs[0].TotalPenalty))

	all, err := store.ListQueueRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProperty(ctx, property("a", "VIP", nil)))

	require.NoError(t, store.Reset(ctx))

	n, err := store.CountProperties(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
