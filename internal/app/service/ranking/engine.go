// Package ranking holds the pure scoring and ordering functions over
// snapshots of insight records. Nothing here touches the store; the feed
// service loads a snapshot and hands it in.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/pkg/timeutil"
)

const (
	// TrendingWindowHours bounds trending candidates to recent content.
	TrendingWindowHours = 48
	// FeaturedWindowDays is the recency window for featured candidates
	// before backfill kicks in.
	FeaturedWindowDays = 7
)

// SortKey selects the ordering for Paginate.
type SortKey string

const (
	SortRecent SortKey = "recent"
	SortLikes  SortKey = "likes"
	SortPinned SortKey = "pinned"
)

// TrendingScore is engagement normalized by recency:
//
//	max(0, likes - 0.5*dislikes) / sqrt(max(1, hours_since_created))
//
// Records that are not shared, or older than the trending window, are not
// candidates and score exactly 0.
func TrendingScore(r *models.InsightRecord, now time.Time) float64 {
	if !r.IsShared {
		return 0
	}
	hours := timeutil.HoursSince(r.CreatedAt, now)
	if hours > TrendingWindowHours {
		return 0
	}
	engagement := float64(r.Likes) - 0.5*float64(r.Dislikes)
	if engagement < 0 {
		engagement = 0
	}
	return engagement / math.Sqrt(math.Max(1, hours))
}

// Trending returns up to limit candidates ordered by score descending.
// Zero-scored records are excluded, not ranked last.
func Trending(records []*models.InsightRecord, limit int, now time.Time) []*models.InsightRecord {
	type scored struct {
		record *models.InsightRecord
		score  float64
	}
	candidates := make([]scored, 0, len(records))
	for _, r := range records {
		if score := TrendingScore(r, now); score > 0 {
			candidates = append(candidates, scored{record: r, score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return lo.Map(candidates, func(s scored, _ int) *models.InsightRecord { return s.record })
}

// MostLiked filters to shared records with at least one like and stable-sorts
// by likes descending, so ties keep their incoming order.
func MostLiked(records []*models.InsightRecord, limit int) []*models.InsightRecord {
	liked := lo.Filter(records, func(r *models.InsightRecord, _ int) bool {
		return r.IsShared && r.Likes > 0
	})
	sort.SliceStable(liked, func(i, j int) bool {
		return liked[i].Likes > liked[j].Likes
	})
	if limit > 0 && len(liked) > limit {
		liked = liked[:limit]
	}
	return liked
}

// Featured picks the most liked shared records created within the featured
// window, then backfills with the most liked shared records of any age until
// limit is reached. No record appears twice.
func Featured(records []*models.InsightRecord, limit int, now time.Time) []*models.InsightRecord {
	if limit <= 0 {
		return []*models.InsightRecord{}
	}
	cutoff := now.Add(-FeaturedWindowDays * 24 * time.Hour)

	shared := lo.Filter(records, func(r *models.InsightRecord, _ int) bool { return r.IsShared })
	recent := lo.Filter(shared, func(r *models.InsightRecord, _ int) bool {
		return r.CreatedAt.After(cutoff)
	})
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Likes > recent[j].Likes })

	featured := recent
	if len(featured) > limit {
		return featured[:limit]
	}

	picked := lo.SliceToMap(featured, func(r *models.InsightRecord) (string, struct{}) {
		return r.ID, struct{}{}
	})
	backfill := lo.Filter(shared, func(r *models.InsightRecord, _ int) bool {
		_, dup := picked[r.ID]
		return !dup
	})
	sort.SliceStable(backfill, func(i, j int) bool { return backfill[i].Likes > backfill[j].Likes })
	for _, r := range backfill {
		if len(featured) == limit {
			break
		}
		featured = append(featured, r)
	}
	return featured
}

// Paginate orders a snapshot by the sort key and returns the 1-indexed page.
// Out-of-range pages are an empty slice, never an error. The input order is
// left untouched.
func Paginate(records []*models.InsightRecord, key SortKey, page, perPage int) []*models.InsightRecord {
	if page < 1 || perPage < 1 {
		return []*models.InsightRecord{}
	}
	ordered := make([]*models.InsightRecord, len(records))
	copy(ordered, records)

	switch key {
	case SortLikes:
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Likes > ordered[j].Likes })
	case SortPinned:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].IsPinned != ordered[j].IsPinned {
				return ordered[i].IsPinned
			}
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		})
	default: // SortRecent
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		})
	}

	start := (page - 1) * perPage
	if start >= len(ordered) {
		return []*models.InsightRecord{}
	}
	end := start + perPage
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[start:end]
}
