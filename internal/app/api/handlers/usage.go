package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/fatflowers/insights/internal/app/api/middleware"
	"github.com/fatflowers/insights/internal/app/service/activity"
	"github.com/fatflowers/insights/internal/app/service/usage"
	"github.com/fatflowers/insights/pkg/response"
)

// @Summary      Usage stats
// @Description  Totals, plan limits, remaining allowances, and the 7-day breakdown for the dashboard.
// @Tags         Usage
// @Produce      json
// @Success      200  {object}  response.APIResponse[usage.Stats]
// @Router       /api/v1/usage/stats [get]
func ApiUsageStats(mgr usage.UsageManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := mgr.GetUsageStats(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

// @Summary      Quota check
// @Description  Whether the user may generate another insight right now.
// @Tags         Usage
// @Produce      json
// @Success      200  {object}  response.APIResponse[usage.LimitCheck]
// @Router       /api/v1/usage/limits [get]
func ApiCheckLimits(mgr usage.UsageManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(mgr.CheckLimits(c.Request.Context(), middleware.UserID(c))))
	}
}

type heatmapDay struct {
	Date  string `json:"date"`
	Level int    `json:"level"`
}

type rhythmResp struct {
	Streak  int           `json:"streak"`
	Heatmap []*heatmapDay `json:"heatmap"`
	Trend   string        `json:"trend"`
}

// @Summary      Generation rhythm
// @Description  Streak, 7-day heatmap levels, and the month-over-month trend direction.
// @Tags         Usage
// @Produce      json
// @Success      200  {object}  response.APIResponse[rhythmResp]
// @Router       /api/v1/usage/rhythm [get]
func ApiUsageRhythm(mgr usage.UsageManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := mgr.GetUsageStats(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		daily := lo.Map(stats.DailyBreakdown, func(d *usage.DayStat, _ int) int64 { return d.Insights })
		heatmap := lo.Map(stats.DailyBreakdown, func(d *usage.DayStat, _ int) *heatmapDay {
			return &heatmapDay{Date: d.Date, Level: activity.HeatmapLevel(d.Insights)}
		})
		monthly := lo.Map(stats.MonthlySeries, func(m *usage.MonthStat, _ int) int64 { return m.Insights })

		c.JSON(http.StatusOK, response.OKT(rhythmResp{
			Streak:  activity.Streak(daily),
			Heatmap: heatmap,
			Trend:   activity.TrendDirection(monthly),
		}))
	}
}

func RegisterUsageRoutes(r gin.IRouter, mgr usage.UsageManager) {
	r.GET("/usage/stats", ApiUsageStats(mgr))
	r.GET("/usage/limits", ApiCheckLimits(mgr))
	r.GET("/usage/rhythm", ApiUsageRhythm(mgr))
}
