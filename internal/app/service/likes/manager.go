package likes

import (
	"context"

	"github.com/fatflowers/insights/internal/models"
)

// LikeManager owns every write to insight documents: creation, the like
// ledger, sharing, and pinning.
type LikeManager interface {
	// CreateInsight stores a new insight record owned by the author.
	CreateInsight(ctx context.Context, req *CreateInsightRequest) (*models.InsightRecord, error)
	// AddLike is the one-time like: the first call by a user increments the
	// counter, any repeat reports AlreadyLiked with the count unchanged.
	AddLike(ctx context.Context, insightID, userID string) (*LikeResult, error)
	// ToggleLike is the legacy reversible path: adds when absent, removes
	// when present, counter moving in lock-step with membership.
	ToggleLike(ctx context.Context, insightID, userID string) (*LikeResult, error)
	// UpdateSharingStatus flips is_shared. Only the author may change it.
	UpdateSharingStatus(ctx context.Context, insightID, userID string, shared bool) error
	// UpdatePinStatus pins or unpins an insight, recording who pinned it
	// and when.
	UpdatePinStatus(ctx context.Context, insightID, userID string, pinned bool) error
}

type CreateInsightRequest struct {
	Topic      string `json:"topic"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	Shared     bool   `json:"shared"`
}

// LikeResult reports the ledger state after a like mutation.
type LikeResult struct {
	InsightID string   `json:"insight_id"`
	Likes     int64    `json:"likes"`
	LikedBy   []string `json:"liked_by"`
	// Liked is the caller's membership after the operation.
	Liked bool `json:"liked"`
	// AlreadyLiked marks the idempotent repeat of AddLike. It is an
	// outcome, not an error.
	AlreadyLiked bool `json:"already_liked"`
}
