package models

import (
	"slices"
	"time"
)

// InsightRecord is the shared-content document ranked by the feed.
//
// Likes invariant: Likes == len(LikedBy) at all times. Both fields are only
// ever mutated together inside one document transaction.
type InsightRecord struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`

	Likes   int64    `json:"likes"`
	LikedBy []string `json:"liked_by"`
	// Dislikes feeds the trending formula but nothing mutates it today;
	// records missing the field default to 0.
	Dislikes   int64    `json:"dislikes"`
	DislikedBy []string `json:"disliked_by"`

	IsShared bool `json:"is_shared"`

	IsPinned bool       `json:"is_pinned"`
	PinnedBy string     `json:"pinned_by,omitempty"`
	PinnedAt *time.Time `json:"pinned_at,omitempty"`

	ViewCount int64 `json:"view_count"`
}

// Normalize defaults fields absent from records written before the social
// schema additions.
func (r *InsightRecord) Normalize() {
	if r.LikedBy == nil {
		r.LikedBy = []string{}
	}
	if r.DislikedBy == nil {
		r.DislikedBy = []string{}
	}
	if r.Likes < 0 {
		r.Likes = 0
	}
	if r.Dislikes < 0 {
		r.Dislikes = 0
	}
}

// LikedByUser reports whether userID already liked this record.
func (r *InsightRecord) LikedByUser(userID string) bool {
	return slices.Contains(r.LikedBy, userID)
}
