package activity

// Pure helpers over usage breakdowns. They take plain counts so the usage
// and activity packages stay decoupled.

// TrendUp and friends are the trend_direction outcomes.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Streak counts consecutive days with at least one insight, walking the
// daily breakdown (oldest first) backward from the most recent day. A quiet
// most-recent day means the streak is 0.
func Streak(dailyInsights []int64) int {
	streak := 0
	for i := len(dailyInsights) - 1; i >= 0; i-- {
		if dailyInsights[i] <= 0 {
			break
		}
		streak++
	}
	return streak
}

// HeatmapLevel maps a day's insight count to a 0..4 render level.
func HeatmapLevel(dayInsightCount int64) int {
	switch {
	case dayInsightCount <= 0:
		return 0
	case dayInsightCount == 1:
		return 1
	case dayInsightCount == 2:
		return 2
	case dayInsightCount <= 4:
		return 3
	default:
		return 4
	}
}

// TrendDirection compares the latest month against the previous one: "up"
// above a 10% rise, "down" below a 10% drop, otherwise "stable". Fewer than
// two data points is "stable".
func TrendDirection(monthlyInsights []int64) string {
	if len(monthlyInsights) < 2 {
		return TrendStable
	}
	latest := float64(monthlyInsights[len(monthlyInsights)-1])
	previous := float64(monthlyInsights[len(monthlyInsights)-2])
	switch {
	case latest > previous*1.10:
		return TrendUp
	case latest < previous*0.90:
		return TrendDown
	default:
		return TrendStable
	}
}
