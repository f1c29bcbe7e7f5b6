package models

import (
	"time"

	"github.com/fatflowers/insights/pkg/types"
)

// Collection names in the document store.
const (
	CollectionUsers       = "users"
	CollectionInsights    = "insights"
	CollectionActivityLog = "activity_log"
)

// UsageSchemaVersion is the current UsageRecord schema. Older records are
// upgraded lazily on read via Normalize; fields are only ever added.
const UsageSchemaVersion = 2

// UsageTotals are lifetime counters for one user.
type UsageTotals struct {
	InsightsGenerated int64 `json:"insights_generated"`
	TotalTokensUsed   int64 `json:"total_tokens_used"`
}

// MonthUsage is one month-key bucket ("YYYY-MM").
type MonthUsage struct {
	Insights       int64 `json:"insights"`
	Tokens         int64 `json:"tokens"`
	SearchRequests int64 `json:"search_requests"`
	// DaysActive counts distinct days with at least one generation event.
	DaysActive int64 `json:"days_active"`
}

// DayUsage is one day-key bucket ("YYYY-MM-DD").
type DayUsage struct {
	Insights       int64 `json:"insights"`
	Tokens         int64 `json:"tokens"`
	SearchRequests int64 `json:"search_requests"`
}

// UsageRecord is the per-user metering document. It is only ever mutated
// through a single-document transaction; readers tolerate records written by
// older revisions by calling Normalize first.
type UsageRecord struct {
	SchemaVersion    int                    `json:"schema_version"`
	Plan             types.PlanName         `json:"plan"`
	Totals           UsageTotals            `json:"totals"`
	MonthlyBreakdown map[string]*MonthUsage `json:"monthly_breakdown"`
	// DailyUsage holds the trailing 30 days; older keys are pruned on every
	// write.
	DailyUsage map[string]*DayUsage `json:"daily_usage"`
	// InsightsRemaining is derived from the plan's monthly limit; the
	// unlimited sentinel (-1) is carried through unchanged.
	InsightsRemaining int64     `json:"insights_remaining"`
	LastReset         time.Time `json:"last_reset"`
}

// NewUsageRecord returns a zero-usage record for a plan, with remaining set
// from the plan's monthly limit.
func NewUsageRecord(plan types.PlanName, limits types.PlanLimits) *UsageRecord {
	return &UsageRecord{
		SchemaVersion:     UsageSchemaVersion,
		Plan:              plan,
		MonthlyBreakdown:  map[string]*MonthUsage{},
		DailyUsage:        map[string]*DayUsage{},
		InsightsRemaining: limits.MonthlyInsights,
	}
}

// Normalize defaults fields absent from records written by older schema
// revisions. It never removes or rewrites historical data.
func (r *UsageRecord) Normalize() {
	if r.Plan == "" {
		r.Plan = types.PlanFree
	}
	if r.MonthlyBreakdown == nil {
		r.MonthlyBreakdown = map[string]*MonthUsage{}
	}
	if r.DailyUsage == nil {
		r.DailyUsage = map[string]*DayUsage{}
	}
	if r.SchemaVersion < UsageSchemaVersion {
		r.SchemaVersion = UsageSchemaVersion
	}
}

// Month returns the bucket for a month-key, creating it if absent.
func (r *UsageRecord) Month(key string) *MonthUsage {
	m, ok := r.MonthlyBreakdown[key]
	if !ok {
		m = &MonthUsage{}
		r.MonthlyBreakdown[key] = m
	}
	return m
}

// Day returns the bucket for a day-key, creating it if absent. The second
// return reports whether the bucket already existed.
func (r *UsageRecord) Day(key string) (*DayUsage, bool) {
	d, ok := r.DailyUsage[key]
	if !ok {
		d = &DayUsage{}
		r.DailyUsage[key] = d
	}
	return d, ok
}

// PruneDaily drops day buckets older than the cutoff day-key. Keys compare
// lexicographically because of the YYYY-MM-DD layout.
func (r *UsageRecord) PruneDaily(cutoffKey string) {
	for key := range r.DailyUsage {
		if key < cutoffKey {
			delete(r.DailyUsage, key)
		}
	}
}
