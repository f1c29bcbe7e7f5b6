package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/config"
	"github.com/fatflowers/insights/pkg/metrics"
	"github.com/fatflowers/insights/pkg/timeutil"
	"github.com/fatflowers/insights/pkg/types"
)

var (
	ErrMissingUserID    = errors.New("user id is required")
	ErrNegativeTokens   = errors.New("tokens_used must not be negative")
	ErrNoSearchRequests = errors.New("search_requests must be at least 1")
)

// dailyRetentionDays bounds the daily_usage map; older day buckets are
// pruned on every write.
const dailyRetentionDays = 30

// breakdownDays is the window of the dashboard daily breakdown.
const breakdownDays = 7

type Service struct {
	cfg   *config.Config
	store store.Store
	log   *zap.SugaredLogger
	clock timeutil.Clock
}

func NewService(cfg *config.Config, st store.Store, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, log: log, clock: timeutil.SystemClock()}
}

// NewServiceWithClock is the test constructor.
func NewServiceWithClock(cfg *config.Config, st store.Store, log *zap.SugaredLogger, clock timeutil.Clock) *Service {
	return &Service{cfg: cfg, store: st, log: log, clock: clock}
}

func (s *Service) TrackGeneration(ctx context.Context, req *TrackGenerationRequest) error {
	if req == nil || req.UserID == "" {
		return ErrMissingUserID
	}
	if req.TokensUsed < 0 {
		return ErrNegativeTokens
	}
	if req.SearchRequests < 1 {
		return ErrNoSearchRequests
	}

	now := s.clock.Now()
	dayKey := timeutil.DayKey(now)
	monthKey := timeutil.MonthKey(now)
	cutoff := timeutil.DayKey(now.AddDate(0, 0, -dailyRetentionDays))

	var plan types.PlanName
	err := s.store.Mutate(ctx, models.CollectionUsers, req.UserID, func(raw json.RawMessage, exists bool) (any, error) {
		doc := &models.UserDocument{}
		if exists {
			if err := json.Unmarshal(raw, doc); err != nil {
				return nil, fmt.Errorf("failed to decode user document: %w", err)
			}
		}
		doc.Normalize(s.newUsageRecord)
		usage := doc.Usage
		plan = usage.Plan

		usage.Totals.InsightsGenerated++
		usage.Totals.TotalTokensUsed += req.TokensUsed

		month := usage.Month(monthKey)
		day, existed := usage.Day(dayKey)
		if !existed {
			month.DaysActive++
		}
		month.Insights++
		month.Tokens += req.TokensUsed
		month.SearchRequests += req.SearchRequests
		day.Insights++
		day.Tokens += req.TokensUsed
		day.SearchRequests += req.SearchRequests

		usage.PruneDaily(cutoff)

		limits := s.cfg.GetPlanLimits(usage.Plan)
		usage.InsightsRemaining = types.Remaining(limits.MonthlyInsights, month.Insights)
		return doc, nil
	})
	if err != nil {
		return fmt.Errorf("failed to track generation for user %s: %w", req.UserID, err)
	}
	metrics.GenerationEvents.WithLabelValues(string(plan)).Inc()
	return nil
}

func (s *Service) CheckLimits(ctx context.Context, userID string) *LimitCheck {
	doc, found, err := s.loadUser(ctx, userID)
	if err != nil {
		// Fail open: a broken ledger must never block generation.
		s.log.Warnw("limit check degraded, allowing generation", "user_id", userID, "err", err)
		limits := types.LimitsFor(types.PlanFree)
		return &LimitCheck{
			CanGenerate:        true,
			Plan:               types.PlanFree,
			HasMonthlyInsights: true,
			HasDailyInsights:   true,
			HasTokens:          true,
			MonthlyRemaining:   limits.MonthlyInsights,
			DailyRemaining:     limits.DailyInsights,
		}
	}
	if !found {
		limits := s.cfg.GetPlanLimits(types.PlanFree)
		return &LimitCheck{
			CanGenerate:        true,
			Plan:               types.PlanFree,
			HasMonthlyInsights: true,
			HasDailyInsights:   true,
			HasTokens:          true,
			MonthlyRemaining:   limits.MonthlyInsights,
			DailyRemaining:     limits.DailyInsights,
		}
	}

	now := s.clock.Now()
	usage := doc.Usage
	limits := s.cfg.GetPlanLimits(usage.Plan)
	month := usage.MonthlyBreakdown[timeutil.MonthKey(now)]
	if month == nil {
		month = &models.MonthUsage{}
	}
	day := usage.DailyUsage[timeutil.DayKey(now)]
	if day == nil {
		day = &models.DayUsage{}
	}

	check := &LimitCheck{
		Plan:             usage.Plan,
		MonthlyRemaining: types.Remaining(limits.MonthlyInsights, month.Insights),
		DailyRemaining:   types.Remaining(limits.DailyInsights, day.Insights),
	}
	check.MonthlyInsightsExceeded = !types.IsUnlimited(limits.MonthlyInsights) && month.Insights >= limits.MonthlyInsights
	check.DailyInsightsExceeded = !types.IsUnlimited(limits.DailyInsights) && day.Insights >= limits.DailyInsights
	check.TokensExceeded = !types.IsUnlimited(limits.MonthlyTokens) && month.Tokens >= limits.MonthlyTokens
	check.HasMonthlyInsights = !check.MonthlyInsightsExceeded
	check.HasDailyInsights = !check.DailyInsightsExceeded
	check.HasTokens = !check.TokensExceeded
	check.CanGenerate = check.HasMonthlyInsights && check.HasDailyInsights

	if !check.CanGenerate {
		scope := "monthly"
		if check.DailyInsightsExceeded {
			scope = "daily"
		}
		metrics.QuotaDenied.WithLabelValues(string(usage.Plan), scope).Inc()
	}
	return check
}

func (s *Service) GetUsageStats(ctx context.Context, userID string) (*Stats, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	doc, found, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		doc = &models.UserDocument{}
		doc.Normalize(s.newUsageRecord)
	}

	now := s.clock.Now()
	usage := doc.Usage
	limits := s.cfg.GetPlanLimits(usage.Plan)
	month := usage.MonthlyBreakdown[timeutil.MonthKey(now)]
	if month == nil {
		month = &models.MonthUsage{}
	}
	todayKey := timeutil.DayKey(now)
	today := usage.DailyUsage[todayKey]
	if today == nil {
		today = &models.DayUsage{}
	}

	// Anchor on the first of the month so AddDate cannot skip short months.
	monthAnchor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	series := make([]*MonthStat, 0, 2)
	for _, offset := range []int{-1, 0} {
		key := timeutil.MonthKey(monthAnchor.AddDate(0, offset, 0))
		stat := &MonthStat{Month: key}
		if m := usage.MonthlyBreakdown[key]; m != nil {
			stat.Insights = m.Insights
		}
		series = append(series, stat)
	}

	breakdown := make([]*DayStat, 0, breakdownDays)
	for i := breakdownDays - 1; i >= 0; i-- {
		key := timeutil.DayKey(now.AddDate(0, 0, -i))
		stat := &DayStat{Date: key}
		if d := usage.DailyUsage[key]; d != nil {
			stat.Insights = d.Insights
			stat.Tokens = d.Tokens
			stat.SearchRequests = d.SearchRequests
		}
		breakdown = append(breakdown, stat)
	}

	return &Stats{
		Plan:                usage.Plan,
		Limits:              limits,
		TotalInsights:       usage.Totals.InsightsGenerated,
		TotalTokens:         usage.Totals.TotalTokensUsed,
		MonthInsights:       month.Insights,
		MonthTokens:         month.Tokens,
		MonthSearchRequests: month.SearchRequests,
		DaysActive:          month.DaysActive,
		TodayInsights:       today.Insights,
		Remaining: Remaining{
			MonthlyInsights: types.Remaining(limits.MonthlyInsights, month.Insights),
			DailyInsights:   types.Remaining(limits.DailyInsights, today.Insights),
			MonthlyTokens:   types.Remaining(limits.MonthlyTokens, month.Tokens),
		},
		Percentages: Percentages{
			MonthlyInsights: types.UsagePercent(limits.MonthlyInsights, month.Insights),
			MonthlyTokens:   types.UsagePercent(limits.MonthlyTokens, month.Tokens),
		},
		DailyBreakdown: breakdown,
		MonthlySeries:  series,
	}, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*models.UserDocument, bool, error) {
	doc := &models.UserDocument{}
	found, err := s.store.Get(ctx, models.CollectionUsers, userID, doc)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if !found {
		return nil, false, nil
	}
	doc.Normalize(s.newUsageRecord)
	return doc, true, nil
}

func (s *Service) newUsageRecord() *models.UsageRecord {
	return models.NewUsageRecord(types.PlanFree, s.cfg.GetPlanLimits(types.PlanFree))
}
