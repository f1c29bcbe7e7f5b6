package types

// Unlimited is the sentinel limit value meaning "no limit". Remaining and
// percentage math must short-circuit on it instead of clamping or dividing.
const Unlimited int64 = -1

// PlanName identifies a subscription tier.
type PlanName string

const (
	PlanFree       PlanName = "free"
	PlanBasic      PlanName = "basic"
	PlanPro        PlanName = "pro"
	PlanEnterprise PlanName = "enterprise"
)

// PlanLimits holds the quota limits for one plan.
type PlanLimits struct {
	MonthlyInsights  int64 `mapstructure:"monthly_insights" json:"monthly_insights"`
	MonthlyTokens    int64 `mapstructure:"monthly_tokens" json:"monthly_tokens"`
	DailyInsights    int64 `mapstructure:"daily_insights" json:"daily_insights"`
	RateLimitPerHour int64 `mapstructure:"rate_limit_per_hour" json:"rate_limit_per_hour"`
}

// Plan pairs a tier name with its limits. Config may carry a list of these
// to override the builtin table.
type Plan struct {
	Name   PlanName   `mapstructure:"name" json:"name"`
	Limits PlanLimits `mapstructure:"limits" json:"limits"`
}

var builtinPlans = map[PlanName]PlanLimits{
	PlanFree: {
		MonthlyInsights:  20,
		MonthlyTokens:    100000,
		DailyInsights:    5,
		RateLimitPerHour: 10,
	},
	PlanBasic: {
		MonthlyInsights:  100,
		MonthlyTokens:    500000,
		DailyInsights:    20,
		RateLimitPerHour: 30,
	},
	PlanPro: {
		MonthlyInsights:  500,
		MonthlyTokens:    2000000,
		DailyInsights:    50,
		RateLimitPerHour: 60,
	},
	PlanEnterprise: {
		MonthlyInsights:  Unlimited,
		MonthlyTokens:    Unlimited,
		DailyInsights:    Unlimited,
		RateLimitPerHour: Unlimited,
	},
}

// LimitsFor returns the limits for a plan name. Unknown plan names fall back
// to the free plan so a bad record never blocks quota evaluation.
func LimitsFor(name PlanName) PlanLimits {
	if limits, ok := builtinPlans[name]; ok {
		return limits
	}
	return builtinPlans[PlanFree]
}

// IsUnlimited reports whether a limit value is the unlimited sentinel.
func IsUnlimited(limit int64) bool {
	return limit == Unlimited
}

// Remaining returns max(0, limit-used) for finite limits and Unlimited for
// the sentinel.
func Remaining(limit, used int64) int64 {
	if IsUnlimited(limit) {
		return Unlimited
	}
	if remaining := limit - used; remaining > 0 {
		return remaining
	}
	return 0
}

// UsagePercent returns used/limit as a 0-100 percentage. It returns 0 for
// the unlimited sentinel and for a zero limit (never divide by either).
func UsagePercent(limit, used int64) float64 {
	if IsUnlimited(limit) || limit == 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}
