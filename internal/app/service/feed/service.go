package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/app/service/ranking"
	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/cache"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/timeutil"
)

const (
	defaultPerPage = 10
	maxPerPage     = 50
	defaultShelf   = 5
	topTopicsLimit = 5

	// snapshotPageSize is the List page size when walking the insights
	// collection.
	snapshotPageSize = 200
)

type Service struct {
	store store.Store
	cache *cache.Cache
	log   *zap.SugaredLogger
	clock timeutil.Clock
}

func NewService(st store.Store, c *cache.Cache, log *zap.SugaredLogger) *Service {
	return &Service{store: st, cache: c, log: log, clock: timeutil.SystemClock()}
}

// NewServiceWithClock is the test constructor.
func NewServiceWithClock(st store.Store, c *cache.Cache, log *zap.SugaredLogger, clock timeutil.Clock) *Service {
	return &Service{store: st, cache: c, log: log, clock: clock}
}

func (s *Service) Community(ctx context.Context, req *CommunityRequest) (*CommunityPage, error) {
	if req == nil {
		req = &CommunityRequest{}
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = defaultPerPage
	}
	if req.PerPage > maxPerPage {
		req.PerPage = maxPerPage
	}
	if req.SortKey == "" {
		req.SortKey = ranking.SortRecent
	}

	snapshot, err := s.sharedSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	page := ranking.Paginate(snapshot, req.SortKey, req.Page, req.PerPage)

	items := lo.Map(page, func(r *models.InsightRecord, _ int) *CommunityItem {
		return &CommunityItem{
			InsightRecord: r,
			LikedByViewer: req.ViewerID != "" && r.LikedByUser(req.ViewerID),
		}
	})
	return &CommunityPage{
		Items:   items,
		Page:    req.Page,
		PerPage: req.PerPage,
		Total:   len(snapshot),
	}, nil
}

func (s *Service) Trending(ctx context.Context, limit int) ([]*models.InsightRecord, error) {
	if limit < 1 {
		limit = defaultShelf
	}
	key := fmt.Sprintf("feed:trending:%d", limit)
	return s.cachedShelf(ctx, key, func(snapshot []*models.InsightRecord) []*models.InsightRecord {
		return ranking.Trending(snapshot, limit, s.clock.Now())
	})
}

func (s *Service) Featured(ctx context.Context, limit int) ([]*models.InsightRecord, error) {
	if limit < 1 {
		limit = defaultShelf
	}
	key := fmt.Sprintf("feed:featured:%d", limit)
	return s.cachedShelf(ctx, key, func(snapshot []*models.InsightRecord) []*models.InsightRecord {
		return ranking.Featured(snapshot, limit, s.clock.Now())
	})
}

func (s *Service) MostLiked(ctx context.Context, limit int) ([]*models.InsightRecord, error) {
	if limit < 1 {
		limit = defaultShelf
	}
	key := fmt.Sprintf("feed:most_liked:%d", limit)
	return s.cachedShelf(ctx, key, func(snapshot []*models.InsightRecord) []*models.InsightRecord {
		return ranking.MostLiked(snapshot, limit)
	})
}

// CommunityStats aggregates the shared snapshot. The independent aggregates
// fan out concurrently and join before the response is assembled.
func (s *Service) CommunityStats(ctx context.Context) (*CommunityStats, error) {
	const key = "feed:stats"
	cached := &CommunityStats{}
	if s.cache.Get(ctx, key, cached) {
		return cached, nil
	}

	snapshot, err := s.sharedSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	stats := &CommunityStats{TotalShared: int64(len(snapshot))}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		stats.TotalLikes = lo.SumBy(snapshot, func(r *models.InsightRecord) int64 { return r.Likes })
	}()
	go func() {
		defer wg.Done()
		authors := lo.UniqBy(snapshot, func(r *models.InsightRecord) string { return r.AuthorID })
		stats.Contributors = int64(len(authors))
		stats.PinnedCount = int64(lo.CountBy(snapshot, func(r *models.InsightRecord) bool { return r.IsPinned }))
	}()
	go func() {
		defer wg.Done()
		stats.TopTopics = topTopics(snapshot, topTopicsLimit)
	}()
	wg.Wait()

	if err := s.cache.Set(ctx, key, stats); err != nil {
		s.log.Warnw("failed to cache community stats", "err", err)
	}
	return stats, nil
}

func topTopics(snapshot []*models.InsightRecord, limit int) []*TopicCount {
	counts := lo.CountValuesBy(snapshot, func(r *models.InsightRecord) string { return r.Topic })
	topics := lo.MapToSlice(counts, func(topic string, n int) *TopicCount {
		return &TopicCount{Topic: topic, Count: int64(n)}
	})
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

func (s *Service) cachedShelf(ctx context.Context, key string, rank func([]*models.InsightRecord) []*models.InsightRecord) ([]*models.InsightRecord, error) {
	cached := []*models.InsightRecord{}
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	snapshot, err := s.sharedSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	shelf := rank(snapshot)
	if err := s.cache.Set(ctx, key, shelf); err != nil {
		s.log.Warnw("failed to cache feed shelf", "key", key, "err", err)
	}
	return shelf, nil
}

// sharedSnapshot walks the insights collection and keeps the shared records.
// Store outages degrade to an empty feed instead of an error page.
func (s *Service) sharedSnapshot(ctx context.Context) ([]*models.InsightRecord, error) {
	snapshot := []*models.InsightRecord{}
	cursor := ""
	for {
		docs, next, err := s.store.List(ctx, models.CollectionInsights, store.Page{Cursor: cursor, Size: snapshotPageSize})
		if err != nil {
			s.log.Warnw("feed snapshot degraded to empty", "err", err)
			return []*models.InsightRecord{}, nil
		}
		for _, doc := range docs {
			rec := &models.InsightRecord{}
			if err := json.Unmarshal(doc.Data, rec); err != nil {
				s.log.Warnw("skipping undecodable insight", "key", doc.Key, "err", err)
				continue
			}
			rec.Normalize()
			if rec.IsShared {
				snapshot = append(snapshot, rec)
			}
		}
		if next == "" {
			return snapshot, nil
		}
		cursor = next
	}
}
