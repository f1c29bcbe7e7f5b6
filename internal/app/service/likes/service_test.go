package likes

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/timeutil"
)

func newTestService(now time.Time) (*Service, *store.MemStore) {
	st := store.NewMemStore()
	return NewServiceWithClock(st, zap.NewNop().Sugar(), timeutil.FixedClock(now)), st
}

func seedInsight(t *testing.T, svc *Service, topic, authorID string, shared bool) *models.InsightRecord {
	t.Helper()
	rec, err := svc.CreateInsight(context.Background(), &CreateInsightRequest{
		Topic: topic, AuthorID: authorID, AuthorName: "Author " + authorID, Shared: shared,
	})
	require.NoError(t, err)
	return rec
}

func TestCreateInsight(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(now)

	rec := seedInsight(t, svc, "rate limiting", "author-1", true)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, now, rec.CreatedAt)
	assert.True(t, rec.IsShared)

	stored := &models.InsightRecord{}
	found, err := st.Get(context.Background(), models.CollectionInsights, rec.ID, stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "rate limiting", stored.Topic)

	_, err = svc.CreateInsight(context.Background(), &CreateInsightRequest{AuthorID: "a"})
	assert.ErrorIs(t, err, ErrMissingTopic)
	_, err = svc.CreateInsight(context.Background(), &CreateInsightRequest{Topic: "t"})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestAddLikeIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()
	rec := seedInsight(t, svc, "caching", "author-1", true)

	first, err := svc.AddLike(ctx, rec.ID, "u1")
	require.NoError(t, err)
	assert.False(t, first.AlreadyLiked)
	assert.True(t, first.Liked)
	assert.Equal(t, int64(1), first.Likes)

	second, err := svc.AddLike(ctx, rec.ID, "u1")
	require.NoError(t, err)
	assert.True(t, second.AlreadyLiked)
	assert.Equal(t, int64(1), second.Likes)
	assert.Equal(t, []string{"u1"}, second.LikedBy)
}

func TestToggleLikeFlipsMembership(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)
	ctx := context.Background()
	rec := seedInsight(t, svc, "queues", "author-1", true)

	on, err := svc.ToggleLike(ctx, rec.ID, "u1")
	require.NoError(t, err)
	assert.True(t, on.Liked)
	assert.Equal(t, int64(1), on.Likes)

	off, err := svc.ToggleLike(ctx, rec.ID, "u1")
	require.NoError(t, err)
	assert.False(t, off.Liked)
	assert.Equal(t, int64(0), off.Likes)
	assert.Empty(t, off.LikedBy)
}

func TestLikesMatchMembershipUnderConcurrency(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(now)
	ctx := context.Background()
	rec := seedInsight(t, svc, "sharding", "author-1", true)

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("u%02d", i)
			if i%3 == 0 {
				_, _ = svc.ToggleLike(ctx, rec.ID, userID)
			} else {
				_, _ = svc.AddLike(ctx, rec.ID, userID)
			}
		}(i)
	}
	wg.Wait()

	stored := &models.InsightRecord{}
	found, err := st.Get(ctx, models.CollectionInsights, rec.ID, stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(len(stored.LikedBy)), stored.Likes)
	assert.Equal(t, int64(n), stored.Likes) // distinct users, all end up liked
}

func TestAddLikeCreatesMissingRecord(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(now)
	ctx := context.Background()

	result, err := svc.AddLike(ctx, "ghost-insight", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Likes)

	stored := &models.InsightRecord{}
	found, err := st.Get(ctx, models.CollectionInsights, "ghost-insight", stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"u1"}, stored.LikedBy)
}

func TestUpdateSharingStatusAuthorOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(now)
	ctx := context.Background()
	rec := seedInsight(t, svc, "indexes", "author-1", false)

	require.NoError(t, svc.UpdateSharingStatus(ctx, rec.ID, "author-1", true))

	stored := &models.InsightRecord{}
	_, err := st.Get(ctx, models.CollectionInsights, rec.ID, stored)
	require.NoError(t, err)
	assert.True(t, stored.IsShared)

	err = svc.UpdateSharingStatus(ctx, rec.ID, "someone-else", false)
	assert.ErrorIs(t, err, ErrNotAuthor)
	_, err = st.Get(ctx, models.CollectionInsights, rec.ID, stored)
	require.NoError(t, err)
	assert.True(t, stored.IsShared, "denied update must not change the record")
}

func TestUpdatePinStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, st := newTestService(now)
	ctx := context.Background()
	rec := seedInsight(t, svc, "wal", "author-1", true)

	require.NoError(t, svc.UpdatePinStatus(ctx, rec.ID, "admin-1", true))
	stored := &models.InsightRecord{}
	_, err := st.Get(ctx, models.CollectionInsights, rec.ID, stored)
	require.NoError(t, err)
	assert.True(t, stored.IsPinned)
	assert.Equal(t, "admin-1", stored.PinnedBy)
	require.NotNil(t, stored.PinnedAt)
	assert.Equal(t, now, stored.PinnedAt.UTC())

	require.NoError(t, svc.UpdatePinStatus(ctx, rec.ID, "admin-1", false))
	stored = &models.InsightRecord{}
	_, err = st.Get(ctx, models.CollectionInsights, rec.ID, stored)
	require.NoError(t, err)
	assert.False(t, stored.IsPinned)
	assert.Empty(t, stored.PinnedBy)
	assert.Nil(t, stored.PinnedAt)
}

func TestLikeValidation(t *testing.T) {
	svc, _ := newTestService(time.Now())
	ctx := context.Background()

	_, err := svc.AddLike(ctx, "", "u1")
	assert.ErrorIs(t, err, ErrMissingInsightID)
	_, err = svc.ToggleLike(ctx, "i1", "")
	assert.ErrorIs(t, err, ErrMissingUserID)
}
