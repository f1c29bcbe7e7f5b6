package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/config"
	"github.com/fatflowers/insights/pkg/types"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(clock *testClock) (*Service, *store.MemStore) {
	st := store.NewMemStore()
	cfg := &config.Config{Usage: config.UsageConfig{ResetPageSize: 2}}
	svc := NewServiceWithClock(cfg, st, zap.NewNop().Sugar(), clock)
	return svc, st
}

func seedUser(t *testing.T, st *store.MemStore, userID string, plan types.PlanName) {
	t.Helper()
	doc := &models.UserDocument{
		Usage: models.NewUsageRecord(plan, types.LimitsFor(plan)),
	}
	require.NoError(t, st.Set(context.Background(), models.CollectionUsers, userID, doc))
}

func TestTrackGenerationAccumulates(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := svc.TrackGeneration(ctx, &TrackGenerationRequest{
			UserID: "u1", TokensUsed: 100, SearchRequests: 2,
		})
		require.NoError(t, err)
	}

	stats, err := svc.GetUsageStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalInsights)
	assert.Equal(t, int64(300), stats.TotalTokens)
	assert.Equal(t, int64(3), stats.MonthInsights)
	assert.Equal(t, int64(300), stats.MonthTokens)
	assert.Equal(t, int64(6), stats.MonthSearchRequests)
	assert.Equal(t, int64(3), stats.TodayInsights)
	assert.Equal(t, int64(17), stats.Remaining.MonthlyInsights) // free: 20 monthly
	assert.Equal(t, int64(2), stats.Remaining.DailyInsights)    // free: 5 daily
	assert.InDelta(t, 15.0, stats.Percentages.MonthlyInsights, 0.001)
}

func TestTrackGenerationValidation(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)

	tests := []struct {
		name string
		req  *TrackGenerationRequest
		want error
	}{
		{"nil request", nil, ErrMissingUserID},
		{"missing user", &TrackGenerationRequest{SearchRequests: 1}, ErrMissingUserID},
		{"negative tokens", &TrackGenerationRequest{UserID: "u1", TokensUsed: -1, SearchRequests: 1}, ErrNegativeTokens},
		{"zero search requests", &TrackGenerationRequest{UserID: "u1"}, ErrNoSearchRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, svc.TrackGeneration(context.Background(), tt.req), tt.want)
		})
	}
}

func TestDaysActiveCountsDistinctDays(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)
	ctx := context.Background()

	track := func() {
		require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", SearchRequests: 1}))
	}
	track()
	track() // same day, should not bump days_active
	clock.now = clock.now.AddDate(0, 0, 1)
	track()

	stats, err := svc.GetUsageStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DaysActive)
	assert.Equal(t, int64(3), stats.MonthInsights)
}

func TestTrackGenerationPrunesOldDays(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc, st := newTestService(clock)
	ctx := context.Background()

	require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", SearchRequests: 1}))

	clock.now = clock.now.AddDate(0, 0, 31)
	require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", SearchRequests: 1}))

	doc := &models.UserDocument{}
	found, err := st.Get(ctx, models.CollectionUsers, "u1", doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.NotContains(t, doc.Usage.DailyUsage, "2026-03-01")
	assert.Contains(t, doc.Usage.DailyUsage, "2026-04-01")
	// Lifetime and monthly history survive the prune.
	assert.Equal(t, int64(2), doc.Usage.Totals.InsightsGenerated)
	assert.Equal(t, int64(1), doc.Usage.MonthlyBreakdown["2026-03"].Insights)
}

func TestCheckLimitsFreePlanDailyCap(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", SearchRequests: 1}))
	}

	check := svc.CheckLimits(ctx, "u1")
	assert.False(t, check.CanGenerate)
	assert.True(t, check.DailyInsightsExceeded)
	assert.False(t, check.MonthlyInsightsExceeded)
	assert.Equal(t, int64(0), check.DailyRemaining)
	assert.Equal(t, int64(15), check.MonthlyRemaining)

	// A new day clears the daily cap while the monthly budget keeps counting.
	clock.now = clock.now.AddDate(0, 0, 1)
	check = svc.CheckLimits(ctx, "u1")
	assert.True(t, check.CanGenerate)
	assert.False(t, check.DailyInsightsExceeded)
}

func TestCheckLimitsUnlimitedPlan(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, st := newTestService(clock)
	ctx := context.Background()
	seedUser(t, st, "ent", types.PlanEnterprise)

	for i := 0; i < 100; i++ {
		require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "ent", SearchRequests: 1}))
	}

	check := svc.CheckLimits(ctx, "ent")
	assert.True(t, check.CanGenerate)
	assert.Equal(t, types.Unlimited, check.MonthlyRemaining)
	assert.Equal(t, types.Unlimited, check.DailyRemaining)

	stats, err := svc.GetUsageStats(ctx, "ent")
	require.NoError(t, err)
	assert.Equal(t, types.Unlimited, stats.Remaining.MonthlyInsights)
	assert.Zero(t, stats.Percentages.MonthlyInsights)
}

func TestCheckLimitsUnknownUserDefaultsToFree(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)

	check := svc.CheckLimits(context.Background(), "nobody")
	assert.True(t, check.CanGenerate)
	assert.Equal(t, types.PlanFree, check.Plan)
	assert.Equal(t, int64(20), check.MonthlyRemaining)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string, any) (bool, error) {
	return false, fmt.Errorf("%w: down", store.ErrUnavailable)
}
func (failingStore) Set(context.Context, string, string, any) error {
	return store.ErrUnavailable
}
func (failingStore) Mutate(context.Context, string, string, store.MutateFunc) error {
	return store.ErrUnavailable
}
func (failingStore) List(context.Context, string, store.Page) ([]store.Document, string, error) {
	return nil, "", store.ErrUnavailable
}

func TestCheckLimitsFailsOpenOnStoreError(t *testing.T) {
	cfg := &config.Config{}
	svc := NewServiceWithClock(cfg, failingStore{}, zap.NewNop().Sugar(),
		&testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)})

	check := svc.CheckLimits(context.Background(), "u1")
	assert.True(t, check.CanGenerate)
	assert.False(t, check.MonthlyInsightsExceeded)
}

func TestGetUsageStatsDailyBreakdownWindow(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)
	ctx := context.Background()

	require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", TokensUsed: 10, SearchRequests: 1}))
	clock.now = clock.now.AddDate(0, 0, 2)
	require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", TokensUsed: 20, SearchRequests: 1}))

	stats, err := svc.GetUsageStats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stats.DailyBreakdown, 7)
	// Oldest first, ending today; untouched days carry zeros.
	assert.Equal(t, "2026-03-01", stats.DailyBreakdown[0].Date)
	assert.Equal(t, "2026-03-07", stats.DailyBreakdown[6].Date)
	assert.Equal(t, int64(0), stats.DailyBreakdown[3].Insights)
	assert.Equal(t, int64(1), stats.DailyBreakdown[4].Insights)
	assert.Equal(t, int64(1), stats.DailyBreakdown[6].Insights)
	assert.Equal(t, int64(20), stats.DailyBreakdown[6].Tokens)

	require.Len(t, stats.MonthlySeries, 2)
	assert.Equal(t, "2026-02", stats.MonthlySeries[0].Month)
	assert.Equal(t, int64(0), stats.MonthlySeries[0].Insights)
	assert.Equal(t, "2026-03", stats.MonthlySeries[1].Month)
	assert.Equal(t, int64(2), stats.MonthlySeries[1].Insights)
}

func TestTrackGenerationConcurrent(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(clock)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", TokensUsed: 1, SearchRequests: 1})
		}()
	}
	wg.Wait()

	stats, err := svc.GetUsageStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.TotalInsights)
	assert.Equal(t, int64(n), stats.TotalTokens)
	assert.Equal(t, int64(1), stats.DaysActive)
}

func TestResetMonthlyUsage(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)}
	svc, st := newTestService(clock)
	ctx := context.Background()

	seedUser(t, st, "basic-user", types.PlanBasic)
	seedUser(t, st, "ent-user", types.PlanEnterprise)
	for i := 0; i < 4; i++ {
		require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "basic-user", TokensUsed: 50, SearchRequests: 1}))
	}
	require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "free-user", SearchRequests: 1}))

	clock.now = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	result, err := svc.ResetMonthlyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.UsersProcessed)
	assert.Equal(t, 2, result.Pages) // page size 2 in the test config

	var doc models.UserDocument
	found, err := st.Get(ctx, models.CollectionUsers, "basic-user", &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(100), doc.Usage.InsightsRemaining)
	assert.Equal(t, clock.now, doc.Usage.LastReset)
	// History is never rewritten by the reset.
	assert.Equal(t, int64(4), doc.Usage.MonthlyBreakdown["2026-03"].Insights)
	assert.Equal(t, int64(4), doc.Usage.Totals.InsightsGenerated)

	found, err = st.Get(ctx, models.CollectionUsers, "ent-user", &doc)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.Unlimited, doc.Usage.InsightsRemaining)

	// Running the job twice is harmless.
	again, err := svc.ResetMonthlyUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, again.UsersProcessed)
}

func TestResetUserSurvivesRoundTrip(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)}
	svc, st := newTestService(clock)
	ctx := context.Background()

	require.NoError(t, svc.TrackGeneration(ctx, &TrackGenerationRequest{UserID: "u1", SearchRequests: 1}))

	raw := json.RawMessage{}
	found, err := st.Get(ctx, models.CollectionUsers, "u1", &raw)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(raw), `"schema_version":2`)
}

func TestNextMonthStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextMonthStart(tt.now))
	}
}
