package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/timeutil"
	"github.com/fatflowers/insights/pkg/tool"
	"github.com/fatflowers/insights/pkg/types"
)

var (
	ErrMissingUserID = errors.New("user id is required")
	ErrMissingType   = errors.New("activity type is required")
)

type Service struct {
	store store.Store
	log   *zap.SugaredLogger
	clock timeutil.Clock
}

func NewService(st store.Store, log *zap.SugaredLogger) *Service {
	return &Service{store: st, log: log, clock: timeutil.SystemClock()}
}

// NewServiceWithClock is the test constructor.
func NewServiceWithClock(st store.Store, log *zap.SugaredLogger, clock timeutil.Clock) *Service {
	return &Service{store: st, log: log, clock: clock}
}

func (s *Service) Record(ctx context.Context, req *RecordRequest) error {
	if req == nil || req.UserID == "" {
		return ErrMissingUserID
	}
	if req.Type == "" {
		return ErrMissingType
	}

	entry := &models.ActivityEntry{
		Type:        req.Type,
		Description: req.Description,
		Timestamp:   s.clock.Now(),
		Metadata:    req.Metadata,
	}

	err := s.store.Mutate(ctx, models.CollectionUsers, req.UserID, func(raw json.RawMessage, exists bool) (any, error) {
		doc := &models.UserDocument{}
		if exists {
			if err := json.Unmarshal(raw, doc); err != nil {
				return nil, fmt.Errorf("failed to decode user document: %w", err)
			}
		}
		doc.Normalize(func() *models.UsageRecord {
			return models.NewUsageRecord(types.PlanFree, types.LimitsFor(types.PlanFree))
		})
		doc.RecentActivities = append([]*models.ActivityEntry{entry}, doc.RecentActivities...)
		if len(doc.RecentActivities) > models.RecentActivitiesCap {
			doc.RecentActivities = doc.RecentActivities[:models.RecentActivitiesCap]
		}
		return doc, nil
	})
	if err != nil {
		return fmt.Errorf("failed to record activity for user %s: %w", req.UserID, err)
	}

	// The audit stream is best-effort: losing one stream entry must not fail
	// the user-visible action.
	stream := &models.ActivityStreamEntry{
		ID:            tool.GenerateUUIDV7(),
		UserID:        req.UserID,
		ActivityEntry: *entry,
	}
	if err := s.store.Set(ctx, models.CollectionActivityLog, stream.ID, stream); err != nil {
		s.log.Warnw("failed to append activity stream entry", "user_id", req.UserID, "err", err)
	}
	return nil
}

func (s *Service) Recent(ctx context.Context, userID string, limit int) ([]*ActivityView, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if limit <= 0 || limit > models.RecentActivitiesCap {
		limit = models.RecentActivitiesCap
	}

	doc := &models.UserDocument{}
	found, err := s.store.Get(ctx, models.CollectionUsers, userID, doc)
	if err != nil {
		// Degraded read: an empty activity list, not an error page.
		s.log.Warnw("recent activities degraded to empty", "user_id", userID, "err", err)
		return []*ActivityView{}, nil
	}
	if !found || doc.RecentActivities == nil {
		return []*ActivityView{}, nil
	}

	now := s.clock.Now()
	entries := doc.RecentActivities
	if len(entries) > limit {
		entries = entries[:limit]
	}
	views := make([]*ActivityView, 0, len(entries))
	for _, e := range entries {
		views = append(views, &ActivityView{
			Type:        e.Type,
			Description: e.Description,
			Timestamp:   e.Timestamp,
			TimeAgo:     timeutil.RelativeTime(e.Timestamp, now),
			Icon:        iconFor(e.Type),
			Metadata:    e.Metadata,
		})
	}
	return views, nil
}

// iconFor derives the display tag from the activity type at read time so the
// mapping can change without a data migration.
func iconFor(t models.ActivityType) string {
	switch t {
	case models.ActivityLogin, models.ActivityLogout:
		return "🔑"
	case models.ActivitySignup:
		return "✨"
	case models.ActivityInsightGenerated:
		return "💡"
	case models.ActivityInsightsViewed, models.ActivityDashboardViewed:
		return "📊"
	case models.ActivityProfileUpdated:
		return "👤"
	case models.ActivityInsightShared:
		return "🔗"
	case models.ActivityInsightLiked:
		return "❤️"
	default:
		return "📌"
	}
}
