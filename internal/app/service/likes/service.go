package likes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/metrics"
	"github.com/fatflowers/insights/pkg/timeutil"
	"github.com/fatflowers/insights/pkg/tool"
)

var (
	ErrMissingInsightID = errors.New("insight id is required")
	ErrMissingUserID    = errors.New("user id is required")
	ErrMissingTopic     = errors.New("topic is required")
	ErrNotAuthor        = errors.New("only the author may change sharing status")
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

func (s *Service) CreateInsight(ctx context.Context, req *CreateInsightRequest) (*models.InsightRecord, error) {
	if req == nil || req.Topic == "" {
		return nil, ErrMissingTopic
	}
	if req.AuthorID == "" {
		return nil, ErrMissingUserID
	}
	rec := &models.InsightRecord{
		ID:         tool.GenerateUUIDV7(),
		Topic:      req.Topic,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		CreatedAt:  s.clock.Now(),
		LikedBy:    []string{},
		DislikedBy: []string{},
		IsShared:   req.Shared,
	}
	if err := s.store.Set(ctx, models.CollectionInsights, rec.ID, rec); err != nil {
		return nil, fmt.Errorf("failed to store insight: %w", err)
	}
	return rec, nil
}

func (s *Service) AddLike(ctx context.Context, insightID, userID string) (*LikeResult, error) {
	if err := validateIDs(insightID, userID); err != nil {
		return nil, err
	}
	result := &LikeResult{InsightID: insightID}
	err := s.mutateInsight(ctx, insightID, func(rec *models.InsightRecord) error {
		if rec.LikedByUser(userID) {
			result.AlreadyLiked = true
		} else {
			rec.LikedBy = append(rec.LikedBy, userID)
			rec.Likes = int64(len(rec.LikedBy))
		}
		result.Likes = rec.Likes
		result.LikedBy = rec.LikedBy
		result.Liked = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add like on insight %s: %w", insightID, err)
	}
	outcome := "liked"
	if result.AlreadyLiked {
		outcome = "already_liked"
	}
	metrics.LikeEvents.WithLabelValues("add", outcome).Inc()
	return result, nil
}

func (s *Service) ToggleLike(ctx context.Context, insightID, userID string) (*LikeResult, error) {
	if err := validateIDs(insightID, userID); err != nil {
		return nil, err
	}
	result := &LikeResult{InsightID: insightID}
	err := s.mutateInsight(ctx, insightID, func(rec *models.InsightRecord) error {
		if idx := slices.Index(rec.LikedBy, userID); idx >= 0 {
			rec.LikedBy = slices.Delete(rec.LikedBy, idx, idx+1)
			result.Liked = false
		} else {
			rec.LikedBy = append(rec.LikedBy, userID)
			result.Liked = true
		}
		// The counter follows membership, never drifts from it.
		rec.Likes = int64(len(rec.LikedBy))
		result.Likes = rec.Likes
		result.LikedBy = rec.LikedBy
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like on insight %s: %w", insightID, err)
	}
	outcome := "unliked"
	if result.Liked {
		outcome = "liked"
	}
	metrics.LikeEvents.WithLabelValues("toggle", outcome).Inc()
	return result, nil
}

func (s *Service) UpdateSharingStatus(ctx context.Context, insightID, userID string, shared bool) error {
	if err := validateIDs(insightID, userID); err != nil {
		return err
	}
	err := s.mutateInsight(ctx, insightID, func(rec *models.InsightRecord) error {
		if rec.AuthorID == "" {
			// A record created by this very call belongs to the caller.
			rec.AuthorID = userID
		}
		if rec.AuthorID != userID {
			return ErrNotAuthor
		}
		rec.IsShared = shared
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotAuthor) {
			return ErrNotAuthor
		}
		return fmt.Errorf("failed to update sharing on insight %s: %w", insightID, err)
	}
	return nil
}

func (s *Service) UpdatePinStatus(ctx context.Context, insightID, userID string, pinned bool) error {
	if err := validateIDs(insightID, userID); err != nil {
		return err
	}
	now := s.clock.Now()
	err := s.mutateInsight(ctx, insightID, func(rec *models.InsightRecord) error {
		rec.IsPinned = pinned
		if pinned {
			rec.PinnedBy = userID
			rec.PinnedAt = &now
		} else {
			rec.PinnedBy = ""
			rec.PinnedAt = nil
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update pin on insight %s: %w", insightID, err)
	}
	return nil
}

// mutateInsight runs fn inside a single document transaction. A missing
// record is created with defaults rather than failing.
func (s *Service) mutateInsight(ctx context.Context, insightID string, fn func(*models.InsightRecord) error) error {
	return s.store.Mutate(ctx, models.CollectionInsights, insightID, func(raw json.RawMessage, exists bool) (any, error) {
		rec := &models.InsightRecord{ID: insightID, CreatedAt: s.clock.Now()}
		if exists {
			if err := json.Unmarshal(raw, rec); err != nil {
				return nil, fmt.Errorf("failed to decode insight %s: %w", insightID, err)
			}
		}
		rec.Normalize()
		if err := fn(rec); err != nil {
			return nil, err
		}
		return rec, nil
	})
}

func validateIDs(insightID, userID string) error {
	if insightID == "" {
		return ErrMissingInsightID
	}
	if userID == "" {
		return ErrMissingUserID
	}
	return nil
}
