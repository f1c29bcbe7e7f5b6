package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/insights/internal/app/api/middleware"
	"github.com/fatflowers/insights/internal/app/service/activity"
	"github.com/fatflowers/insights/internal/models"
	"github.com/fatflowers/insights/pkg/response"
)

// @Summary      Recent activity
// @Description  The user's capped recent-activity list with display annotations.
// @Tags         Activity
// @Produce      json
// @Param        limit query int false "Max entries (default 10)"
// @Success      200  {object}  response.APIResponse[[]activity.ActivityView]
// @Router       /api/v1/activity/recent [get]
func ApiRecentActivity(mgr activity.ActivityManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		views, err := mgr.Recent(c.Request.Context(), middleware.UserID(c), limit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(views))
	}
}

type recordActivityReq struct {
	Type        models.ActivityType `json:"type" binding:"required"`
	Description string              `json:"description"`
	Metadata    map[string]any      `json:"metadata"`
}

// @Summary      Record activity
// @Description  Lets the client report page-view style actions (dashboard viewed, insights viewed).
// @Tags         Activity
// @Accept       json
// @Produce      json
// @Param        request body recordActivityReq true "Activity entry"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/activity [post]
func ApiRecordActivity(mgr activity.ActivityManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recordActivityReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		err := mgr.Record(c.Request.Context(), &activity.RecordRequest{
			UserID:      middleware.UserID(c),
			Type:        req.Type,
			Description: req.Description,
			Metadata:    req.Metadata,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterActivityRoutes(r gin.IRouter, mgr activity.ActivityManager) {
	r.GET("/activity/recent", ApiRecentActivity(mgr))
	r.POST("/activity", ApiRecordActivity(mgr))
}
