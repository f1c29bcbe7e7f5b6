package activity

import (
	"context"
	"time"

	"github.com/fatflowers/insights/internal/models"
)

// ActivityManager records user actions and serves the dashboard's recent
// activity, streak, and rhythm views.
type ActivityManager interface {
	// Record prepends an entry to the user's capped recent list and appends
	// it to the unbounded audit stream. Creates the user document if absent.
	Record(ctx context.Context, req *RecordRequest) error
	// Recent returns up to limit entries from the capped list with the
	// display fields (relative time, icon) derived at read time.
	Recent(ctx context.Context, userID string, limit int) ([]*ActivityView, error)
}

type RecordRequest struct {
	UserID      string              `json:"user_id"`
	Type        models.ActivityType `json:"type"`
	Description string              `json:"description"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}

// ActivityView is one display-ready entry of the recent list.
type ActivityView struct {
	Type        models.ActivityType `json:"type"`
	Description string              `json:"description"`
	Timestamp   time.Time           `json:"timestamp"`
	TimeAgo     string              `json:"time_ago"`
	Icon        string              `json:"icon"`
	Metadata    map[string]any      `json:"metadata,omitempty"`
}
