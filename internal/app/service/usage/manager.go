package usage

import (
	"context"

	"github.com/fatflowers/insights/pkg/types"
)

// UsageManager is the metering surface consumed by the HTTP layer and by the
// other services that need quota answers.
type UsageManager interface {
	// TrackGeneration records one generation event for a user: lifetime
	// totals, the month and day buckets, and the derived remaining count.
	TrackGeneration(ctx context.Context, req *TrackGenerationRequest) error
	// CheckLimits evaluates the user's plan quotas. It fails open: when the
	// ledger cannot be read the caller may still generate.
	CheckLimits(ctx context.Context, userID string) *LimitCheck
	// GetUsageStats assembles the dashboard view of a user's ledger.
	GetUsageStats(ctx context.Context, userID string) (*Stats, error)
	// ResetMonthlyUsage walks every user document page by page and restores
	// the remaining count from the plan's monthly limit. Idempotent.
	ResetMonthlyUsage(ctx context.Context) (*ResetResult, error)
}

type TrackGenerationRequest struct {
	UserID         string `json:"user_id"`
	TokensUsed     int64  `json:"tokens_used"`
	SearchRequests int64  `json:"search_requests"`
}

// LimitCheck is the quota verdict for one user at one instant.
type LimitCheck struct {
	CanGenerate             bool           `json:"can_generate"`
	Plan                    types.PlanName `json:"plan"`
	HasMonthlyInsights      bool           `json:"has_monthly_insights"`
	HasDailyInsights        bool           `json:"has_daily_insights"`
	HasTokens               bool           `json:"has_tokens"`
	MonthlyInsightsExceeded bool           `json:"monthly_insights_exceeded"`
	DailyInsightsExceeded   bool           `json:"daily_insights_exceeded"`
	TokensExceeded          bool           `json:"tokens_exceeded"`
	MonthlyRemaining        int64          `json:"monthly_remaining"`
	DailyRemaining          int64          `json:"daily_remaining"`
}

// DayStat is one entry of the trailing-week breakdown, oldest first.
type DayStat struct {
	Date           string `json:"date"`
	Insights       int64  `json:"insights"`
	Tokens         int64  `json:"tokens"`
	SearchRequests int64  `json:"search_requests"`
}

// MonthStat is one entry of the trailing-months series, oldest first.
type MonthStat struct {
	Month    string `json:"month"`
	Insights int64  `json:"insights"`
}

type Remaining struct {
	MonthlyInsights int64 `json:"monthly_insights"`
	DailyInsights   int64 `json:"daily_insights"`
	MonthlyTokens   int64 `json:"monthly_tokens"`
}

type Percentages struct {
	MonthlyInsights float64 `json:"monthly_insights"`
	MonthlyTokens   float64 `json:"monthly_tokens"`
}

// Stats is the dashboard projection of one user's ledger.
type Stats struct {
	Plan   types.PlanName   `json:"plan"`
	Limits types.PlanLimits `json:"limits"`

	TotalInsights int64 `json:"total_insights"`
	TotalTokens   int64 `json:"total_tokens"`

	MonthInsights       int64 `json:"month_insights"`
	MonthTokens         int64 `json:"month_tokens"`
	MonthSearchRequests int64 `json:"month_search_requests"`
	DaysActive          int64 `json:"days_active"`
	TodayInsights       int64 `json:"today_insights"`

	Remaining   Remaining   `json:"remaining"`
	Percentages Percentages `json:"percentages"`

	// DailyBreakdown covers the trailing 7 days including today, oldest
	// first; days without activity appear with zero counts.
	DailyBreakdown []*DayStat `json:"daily_breakdown"`
	// MonthlySeries covers the previous and current month, oldest first,
	// for trend rendering.
	MonthlySeries []*MonthStat `json:"monthly_series"`
}

type ResetResult struct {
	UsersProcessed int `json:"users_processed"`
	Pages          int `json:"pages"`
}
