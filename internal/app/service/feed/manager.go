package feed

import (
	"context"

	"github.com/fatflowers/insights/internal/app/service/ranking"
	"github.com/fatflowers/insights/internal/models"
)

// FeedManager is the read side of the community surface: paginated listing,
// the curated shelves, and the aggregate stats.
type FeedManager interface {
	// Community returns one page of the shared snapshot under a sort key.
	Community(ctx context.Context, req *CommunityRequest) (*CommunityPage, error)
	// Trending, Featured, and MostLiked are the curated shelves. They are
	// served from a short-TTL cache when one is configured.
	Trending(ctx context.Context, limit int) ([]*models.InsightRecord, error)
	Featured(ctx context.Context, limit int) ([]*models.InsightRecord, error)
	MostLiked(ctx context.Context, limit int) ([]*models.InsightRecord, error)
	// CommunityStats aggregates the whole shared snapshot.
	CommunityStats(ctx context.Context) (*CommunityStats, error)
}

type CommunityRequest struct {
	SortKey ranking.SortKey `json:"sort" form:"sort"`
	Page    int             `json:"page" form:"page"`
	PerPage int             `json:"per_page" form:"per_page"`
	// ViewerID annotates each record with the viewer's like membership.
	ViewerID string `json:"-" form:"-"`
}

// CommunityItem is one feed entry with viewer-specific annotations.
type CommunityItem struct {
	*models.InsightRecord
	LikedByViewer bool `json:"liked_by_viewer"`
}

type CommunityPage struct {
	Items   []*CommunityItem `json:"items"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
	Total   int              `json:"total"`
}

// TopicCount is one entry of the top-topics leaderboard.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int64  `json:"count"`
}

type CommunityStats struct {
	TotalShared  int64         `json:"total_shared"`
	TotalLikes   int64         `json:"total_likes"`
	Contributors int64         `json:"contributors"`
	PinnedCount  int64         `json:"pinned_count"`
	TopTopics    []*TopicCount `json:"top_topics"`
}
