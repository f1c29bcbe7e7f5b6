package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/app/service/ranking"
	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/cache"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/timeutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, withCache bool) (*Service, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	var c *cache.Cache
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		c = cache.NewWithClient(client, time.Minute)
	}
	return NewServiceWithClock(st, c, zap.NewNop().Sugar(), timeutil.FixedClock(now)), st
}

func seedInsight(t *testing.T, st *store.MemStore, id string, likes int64, age time.Duration, shared bool, opts ...func(*models.InsightRecord)) {
	t.Helper()
	likedBy := make([]string, 0, likes)
	for i := int64(0); i < likes; i++ {
		likedBy = append(likedBy, fmt.Sprintf("fan-%s-%d", id, i))
	}
	rec := &models.InsightRecord{
		ID:        id,
		Topic:     "topic-" + id,
		AuthorID:  "author-" + id,
		CreatedAt: now.Add(-age),
		Likes:     likes,
		LikedBy:   likedBy,
		IsShared:  shared,
	}
	for _, opt := range opts {
		opt(rec)
	}
	require.NoError(t, st.Set(context.Background(), models.CollectionInsights, id, rec))
}

func TestCommunityPagination(t *testing.T) {
	svc, st := newTestService(t, false)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		seedInsight(t, st, fmt.Sprintf("r%02d", i), int64(i), time.Duration(i)*time.Hour, true)
	}
	seedInsight(t, st, "private", 99, time.Hour, false)

	page, err := svc.Community(ctx, &CommunityRequest{SortKey: ranking.SortRecent, Page: 2, PerPage: 5})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total) // the private record never shows
	require.Len(t, page.Items, 5)
	assert.Equal(t, "r05", page.Items[0].ID)

	empty, err := svc.Community(ctx, &CommunityRequest{Page: 4, PerPage: 5})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestCommunityViewerAnnotation(t *testing.T) {
	svc, st := newTestService(t, false)
	ctx := context.Background()

	seedInsight(t, st, "a", 0, time.Hour, true, func(r *models.InsightRecord) {
		r.LikedBy = []string{"viewer-1"}
		r.Likes = 1
	})
	seedInsight(t, st, "b", 0, 2*time.Hour, true)

	page, err := svc.Community(ctx, &CommunityRequest{ViewerID: "viewer-1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].LikedByViewer) // "a" is newer, sorts first
	assert.False(t, page.Items[1].LikedByViewer)
}

func TestTrendingShelf(t *testing.T) {
	svc, st := newTestService(t, false)
	ctx := context.Background()

	seedInsight(t, st, "hot", 20, 2*time.Hour, true)
	seedInsight(t, st, "warm", 5, time.Hour, true)
	seedInsight(t, st, "stale", 100, 72*time.Hour, true)
	seedInsight(t, st, "private", 100, time.Hour, false)

	shelf, err := svc.Trending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, shelf, 2)
	assert.Equal(t, "hot", shelf[0].ID)
	assert.Equal(t, "warm", shelf[1].ID)
}

func TestShelvesServeFromCache(t *testing.T) {
	svc, st := newTestService(t, true)
	ctx := context.Background()

	seedInsight(t, st, "a", 3, time.Hour, true)

	first, err := svc.MostLiked(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A record added after the cache fill is invisible until the TTL runs
	// out; staleness is bounded, not zero.
	seedInsight(t, st, "b", 9, time.Hour, true)
	second, err := svc.MostLiked(ctx, 5)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "a", second[0].ID)

	// A different limit is a different cache key and sees the new record.
	fresh, err := svc.MostLiked(ctx, 4)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "b", fresh[0].ID)
}

func TestFeaturedBackfill(t *testing.T) {
	svc, st := newTestService(t, false)
	ctx := context.Background()

	seedInsight(t, st, "recent", 2, 24*time.Hour, true)
	seedInsight(t, st, "classic", 50, 30*24*time.Hour, true)

	shelf, err := svc.Featured(ctx, 2)
	require.NoError(t, err)
	require.Len(t, shelf, 2)
	assert.Equal(t, "recent", shelf[0].ID)
	assert.Equal(t, "classic", shelf[1].ID)
}

func TestCommunityStats(t *testing.T) {
	svc, st := newTestService(t, true)
	ctx := context.Background()

	seedInsight(t, st, "a", 3, time.Hour, true, func(r *models.InsightRecord) { r.Topic = "caching" })
	seedInsight(t, st, "b", 2, time.Hour, true, func(r *models.InsightRecord) { r.Topic = "caching" })
	seedInsight(t, st, "c", 1, time.Hour, true, func(r *models.InsightRecord) {
		r.Topic = "sharding"
		r.IsPinned = true
	})
	seedInsight(t, st, "d", 0, time.Hour, false)

	stats, err := svc.CommunityStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalShared)
	assert.Equal(t, int64(6), stats.TotalLikes)
	assert.Equal(t, int64(3), stats.Contributors)
	assert.Equal(t, int64(1), stats.PinnedCount)
	require.NotEmpty(t, stats.TopTopics)
	assert.Equal(t, "caching", stats.TopTopics[0].Topic)
	assert.Equal(t, int64(2), stats.TopTopics[0].Count)

	// Second read comes from the cache and matches.
	again, err := svc.CommunityStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalLikes, again.TotalLikes)
}

func TestFeedWorksWithoutCache(t *testing.T) {
	svc, st := newTestService(t, false) // nil cache is the always-miss cache
	ctx := context.Background()

	seedInsight(t, st, "a", 1, time.Hour, true)
	shelf, err := svc.Trending(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, shelf, 1)

	stats, err := svc.CommunityStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalShared)
}
