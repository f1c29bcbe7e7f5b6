package models

import "time"

// ActivityType enumerates the tracked user actions.
type ActivityType string

const (
	ActivityLogin            ActivityType = "login"
	ActivitySignup           ActivityType = "signup"
	ActivityLogout           ActivityType = "logout"
	ActivityInsightGenerated ActivityType = "insight_generated"
	ActivityInsightsViewed   ActivityType = "insights_viewed"
	ActivityDashboardViewed  ActivityType = "dashboard_viewed"
	ActivityProfileUpdated   ActivityType = "profile_updated"
	ActivityInsightShared    ActivityType = "insight_shared"
	ActivityInsightLiked     ActivityType = "insight_liked"
)

// ActivityEntry is one element of a user's capped recent-activity list.
// Display attributes (relative time, icon) are derived at read time, never
// stored.
type ActivityEntry struct {
	Type        ActivityType   `json:"type"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ActivityStreamEntry is one element of the unbounded audit stream. Unlike
// the capped per-user list it carries the user id because the stream spans
// users.
type ActivityStreamEntry struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	ActivityEntry
}

// RecentActivities is the capped list stored on the user document.
const RecentActivitiesCap = 10

// UserProfile is the non-metering half of the user document: identity and
// social flags the ledger services need but do not own.
type UserProfile struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsAdmin     bool   `json:"is_admin,omitempty"`
}

// UserDocument is the full per-user document: profile, usage ledger, and
// the capped recent-activity list live on one key so every mutation is a
// single-document transaction.
type UserDocument struct {
	Profile          UserProfile      `json:"profile"`
	Usage            *UsageRecord     `json:"usage"`
	RecentActivities []*ActivityEntry `json:"recent_activities"`
}

// Normalize lazily defaults missing sections so documents created by any
// entry point (or an older revision) are safe to mutate.
func (d *UserDocument) Normalize(plan func() *UsageRecord) {
	if d.Usage == nil {
		d.Usage = plan()
	}
	d.Usage.Normalize()
	if d.RecentActivities == nil {
		d.RecentActivities = []*ActivityEntry{}
	}
}
