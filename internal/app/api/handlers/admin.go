package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/insights/internal/app/service/likes"
	"github.com/fatflowers/insights/internal/app/service/usage"
	"github.com/fatflowers/insights/pkg/response"
)

// @Summary      Run the monthly usage reset
// @Description  Walks every user document in pages and restores remaining counts from plan limits. Idempotent; normally fired by the scheduled job.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  response.APIResponse[usage.ResetResult]
// @Router       /api/v1/admin/usage/reset [post]
func ApiResetMonthlyUsage(mgr usage.UsageManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := mgr.ResetMonthlyUsage(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(result))
	}
}

func RegisterAdminRoutes(r gin.IRouter, usageMgr usage.UsageManager, likeMgr likes.LikeManager) {
	r.POST("/usage/reset", ApiResetMonthlyUsage(usageMgr))
	r.PUT("/insights/:id/pin", ApiUpdatePin(likeMgr))
}
