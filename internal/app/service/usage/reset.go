package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/internal/platform/store"
	"github.com/fatflowers/insights/pkg/metrics"
)

// ResetMonthlyUsage restores every user's remaining count from the plan's
// monthly limit and stamps last_reset. Each user commits independently, so a
// partial failure leaves already-reset users done and the job can simply run
// again: resetting an already-reset user is a no-op.
func (s *Service) ResetMonthlyUsage(ctx context.Context) (*ResetResult, error) {
	pageSize := s.cfg.Usage.ResetPageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	now := s.clock.Now()
	result := &ResetResult{}
	cursor := ""
	for {
		docs, next, err := s.store.List(ctx, models.CollectionUsers, store.Page{Cursor: cursor, Size: pageSize})
		if err != nil {
			return result, fmt.Errorf("failed to list users at cursor %q: %w", cursor, err)
		}
		if len(docs) > 0 {
			result.Pages++
		}
		for _, doc := range docs {
			if err := s.resetUser(ctx, doc.Key, now); err != nil {
				// Keep going; the failed user is picked up by the next run.
				s.log.Errorw("monthly reset failed for user", "user_id", doc.Key, "err", err)
				continue
			}
			result.UsersProcessed++
			metrics.ResetUsersProcessed.Inc()
		}
		if next == "" {
			break
		}
		cursor = next
	}
	s.log.Infow("monthly usage reset finished",
		"users_processed", result.UsersProcessed, "pages", result.Pages)
	return result, nil
}

func (s *Service) resetUser(ctx context.Context, userID string, now time.Time) error {
	return s.store.Mutate(ctx, models.CollectionUsers, userID, func(raw json.RawMessage, exists bool) (any, error) {
		doc := &models.UserDocument{}
		if exists {
			if err := json.Unmarshal(raw, doc); err != nil {
				return nil, fmt.Errorf("failed to decode user document: %w", err)
			}
		}
		doc.Normalize(s.newUsageRecord)
		limits := s.cfg.GetPlanLimits(doc.Usage.Plan)
		// The unlimited sentinel is a valid monthly limit and flows through.
		doc.Usage.InsightsRemaining = limits.MonthlyInsights
		doc.Usage.LastReset = now
		return doc, nil
	})
}

// registerResetJob fires ResetMonthlyUsage at the first UTC midnight of each
// month for as long as the process runs.
func registerResetJob(lc fx.Lifecycle, log *zap.SugaredLogger, svc *Service) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				for {
					now := svc.clock.Now()
					next := nextMonthStart(now)
					log.Infow("monthly reset scheduled", "at", next)
					select {
					case <-ctx.Done():
						return
					case <-time.After(next.Sub(now)):
						if _, err := svc.ResetMonthlyUsage(ctx); err != nil {
							log.Errorw("monthly reset run failed", "err", err)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func nextMonthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
