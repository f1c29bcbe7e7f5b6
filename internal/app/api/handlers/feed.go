package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/insights/internal/app/api/middleware"
	"github.com/fatflowers/insights/internal/app/service/feed"
	"github.com/fatflowers/insights/internal/app/service/ranking"
	"github.com/fatflowers/insights/pkg/response"
)

// @Summary      Community feed
// @Description  Paginated shared insights under a sort key (recent, likes, pinned).
// @Tags         Community
// @Produce      json
// @Param        sort query string false "Sort key" Enums(recent, likes, pinned)
// @Param        page query int false "1-indexed page"
// @Param        per_page query int false "Page size"
// @Success      200  {object}  response.APIResponse[feed.CommunityPage]
// @Router       /api/v1/community [get]
func ApiCommunity(mgr feed.FeedManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

		result, err := mgr.Community(c.Request.Context(), &feed.CommunityRequest{
			SortKey:  ranking.SortKey(c.DefaultQuery("sort", string(ranking.SortRecent))),
			Page:     page,
			PerPage:  perPage,
			ViewerID: middleware.UserID(c),
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(result))
	}
}

func shelfHandler(load func(c *gin.Context, limit int) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
		shelf, err := load(c, limit)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(shelf))
	}
}

// @Summary      Trending insights
// @Tags         Community
// @Produce      json
// @Param        limit query int false "Shelf size (default 5)"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/community/trending [get]
func ApiTrending(mgr feed.FeedManager) gin.HandlerFunc {
	return shelfHandler(func(c *gin.Context, limit int) (any, error) {
		return mgr.Trending(c.Request.Context(), limit)
	})
}

// @Summary      Featured insights
// @Tags         Community
// @Produce      json
// @Param        limit query int false "Shelf size (default 5)"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/community/featured [get]
func ApiFeatured(mgr feed.FeedManager) gin.HandlerFunc {
	return shelfHandler(func(c *gin.Context, limit int) (any, error) {
		return mgr.Featured(c.Request.Context(), limit)
	})
}

// @Summary      Most liked insights
// @Tags         Community
// @Produce      json
// @Param        limit query int false "Shelf size (default 5)"
// @Success      200  {object}  response.APIResponse[any]
// @Router       /api/v1/community/most_liked [get]
func ApiMostLiked(mgr feed.FeedManager) gin.HandlerFunc {
	return shelfHandler(func(c *gin.Context, limit int) (any, error) {
		return mgr.MostLiked(c.Request.Context(), limit)
	})
}

// @Summary      Community stats
// @Description  Aggregates over the shared snapshot: totals, contributors, top topics.
// @Tags         Community
// @Produce      json
// @Success      200  {object}  response.APIResponse[feed.CommunityStats]
// @Router       /api/v1/community/stats [get]
func ApiCommunityStats(mgr feed.FeedManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := mgr.CommunityStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(stats))
	}
}

func RegisterFeedRoutes(r gin.IRouter, mgr feed.FeedManager) {
	r.GET("/community", ApiCommunity(mgr))
	r.GET("/community/trending", ApiTrending(mgr))
	r.GET("/community/featured", ApiFeatured(mgr))
	r.GET("/community/most_liked", ApiMostLiked(mgr))
	r.GET("/community/stats", ApiCommunityStats(mgr))
}
