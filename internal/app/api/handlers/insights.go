package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/insights/internal/app/api/middleware"
	"github.com/fatflowers/insights/internal/app/service/activity"
	"github.com/fatflowers/insights/internal/app/service/likes"
	"github.com/fatflowers/insights/internal/app/service/usage"
	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/pkg/response"
)

type generateInsightReq struct {
	Topic          string `json:"topic" binding:"required"`
	TokensUsed     int64  `json:"tokens_used"`
	SearchRequests int64  `json:"search_requests"`
	Share          bool   `json:"share"`
}

type generateInsightResp struct {
	Insight *models.InsightRecord `json:"insight"`
	Limits  *usage.LimitCheck     `json:"limits"`
}

// @Summary      Record a generated insight
// @Description  Checks plan quotas, stores the insight, and meters the usage. Denied quota is a distinct response code, not a generic error.
// @Tags         Insights
// @Accept       json
// @Produce      json
// @Param        request body generateInsightReq true "Generated insight"
// @Success      200  {object}  response.APIResponse[generateInsightResp]
// @Router       /api/v1/insights [post]
func ApiGenerateInsight(usageMgr usage.UsageManager, likeMgr likes.LikeManager, activityMgr activity.ActivityManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateInsightReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		userID := middleware.UserID(c)
		ctx := c.Request.Context()

		check := usageMgr.CheckLimits(ctx, userID)
		if !check.CanGenerate {
			c.JSON(http.StatusOK, response.ErrorT(response.APIResponseCodeQuotaExceeded, check))
			return
		}

		searchRequests := req.SearchRequests
		if searchRequests < 1 {
			searchRequests = 1
		}
		rec, err := likeMgr.CreateInsight(ctx, &likes.CreateInsightRequest{
			Topic:    req.Topic,
			AuthorID: userID,
			Shared:   req.Share,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if err := usageMgr.TrackGeneration(ctx, &usage.TrackGenerationRequest{
			UserID:         userID,
			TokensUsed:     req.TokensUsed,
			SearchRequests: searchRequests,
		}); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		// Activity is best-effort; the insight is already stored and metered.
		_ = activityMgr.Record(ctx, &activity.RecordRequest{
			UserID:      userID,
			Type:        models.ActivityInsightGenerated,
			Description: "Generated insight on " + req.Topic,
		})

		c.JSON(http.StatusOK, response.OKT(generateInsightResp{
			Insight: rec,
			Limits:  usageMgr.CheckLimits(ctx, userID),
		}))
	}
}

// @Summary      Like an insight
// @Description  One-time like. A repeat by the same user reports already_liked with the count unchanged.
// @Tags         Insights
// @Produce      json
// @Param        id path string true "Insight ID"
// @Success      200  {object}  response.APIResponse[likes.LikeResult]
// @Router       /api/v1/insights/{id}/like [post]
func ApiAddLike(likeMgr likes.LikeManager, activityMgr activity.ActivityManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		ctx := c.Request.Context()

		result, err := likeMgr.AddLike(ctx, c.Param("id"), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](likeErrorCode(err), err.Error()))
			return
		}
		if !result.AlreadyLiked {
			_ = activityMgr.Record(ctx, &activity.RecordRequest{
				UserID:      userID,
				Type:        models.ActivityInsightLiked,
				Description: "Liked an insight",
				Metadata:    map[string]any{"insight_id": result.InsightID},
			})
		}
		c.JSON(http.StatusOK, response.OKT(result))
	}
}

// @Summary      Toggle a like (legacy)
// @Description  Reversible like kept for older clients; adds when absent, removes when present.
// @Tags         Insights
// @Produce      json
// @Param        id path string true "Insight ID"
// @Success      200  {object}  response.APIResponse[likes.LikeResult]
// @Router       /api/v1/insights/{id}/like/toggle [post]
func ApiToggleLike(likeMgr likes.LikeManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := likeMgr.ToggleLike(c.Request.Context(), c.Param("id"), middleware.UserID(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](likeErrorCode(err), err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(result))
	}
}

type sharingReq struct {
	Shared *bool `json:"shared" binding:"required"`
}

// @Summary      Update sharing status
// @Description  Author-only switch controlling whether the insight shows in the community feed.
// @Tags         Insights
// @Accept       json
// @Produce      json
// @Param        id path string true "Insight ID"
// @Param        request body sharingReq true "Sharing flag"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/insights/{id}/sharing [put]
func ApiUpdateSharing(likeMgr likes.LikeManager, activityMgr activity.ActivityManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sharingReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		userID := middleware.UserID(c)
		ctx := c.Request.Context()

		err := likeMgr.UpdateSharingStatus(ctx, c.Param("id"), userID, *req.Shared)
		if err != nil {
			if errors.Is(err, likes.ErrNotAuthor) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeForbidden, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if *req.Shared {
			_ = activityMgr.Record(ctx, &activity.RecordRequest{
				UserID:      userID,
				Type:        models.ActivityInsightShared,
				Description: "Shared an insight with the community",
				Metadata:    map[string]any{"insight_id": c.Param("id")},
			})
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

type pinReq struct {
	Pinned *bool `json:"pinned" binding:"required"`
}

// @Summary      Pin or unpin an insight
// @Description  Admin curation; pinned insights sort first under the pinned sort key.
// @Tags         Insights
// @Accept       json
// @Produce      json
// @Param        id path string true "Insight ID"
// @Param        request body pinReq true "Pin flag"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/admin/insights/{id}/pin [put]
func ApiUpdatePin(likeMgr likes.LikeManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req pinReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		err := likeMgr.UpdatePinStatus(c.Request.Context(), c.Param("id"), middleware.UserID(c), *req.Pinned)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func likeErrorCode(err error) response.APIResponseCode {
	switch {
	case errors.Is(err, likes.ErrMissingInsightID), errors.Is(err, likes.ErrMissingUserID):
		return response.APIResponseCodeBadRequest
	default:
		return response.APIResponseCodeError
	}
}

func RegisterInsightRoutes(r gin.IRouter, usageMgr usage.UsageManager, likeMgr likes.LikeManager, activityMgr activity.ActivityManager) {
	r.POST("/insights", ApiGenerateInsight(usageMgr, likeMgr, activityMgr))
	r.POST("/insights/:id/like", ApiAddLike(likeMgr, activityMgr))
	r.POST("/insights/:id/like/toggle", ApiToggleLike(likeMgr))
	r.PUT("/insights/:id/sharing", ApiUpdateSharing(likeMgr, activityMgr))
}
