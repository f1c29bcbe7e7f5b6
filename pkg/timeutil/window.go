package timeutil

import (
	"fmt"
	"time"
)

const (
	DayKeyLayout   = time.DateOnly
	MonthKeyLayout = "2006-01"
)

// Clock abstracts wall-clock time so services can be tested against a fixed
// instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return systemClock{} }

// FixedClock returns a Clock that always reports t. Test helper.
func FixedClock(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (f fixedClock) Now() time.Time { return f.t }

// DayKey maps an instant to its UTC calendar-day bucket key ("YYYY-MM-DD").
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// MonthKey maps an instant to its UTC calendar-month bucket key ("YYYY-MM").
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthKeyLayout)
}

// ParseDayKey parses a day-key back into a UTC midnight instant.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, key, time.UTC)
}

// HoursSince returns the elapsed hours between t and now as a float.
// Negative when t is in the future.
func HoursSince(t, now time.Time) float64 {
	return now.Sub(t).Hours()
}

// RelativeTime renders an instant relative to now for display
// ("Just now", "5 minutes ago", "2 hours ago", "3 days ago").
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
