package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/proxylogs/proxylogs/internal/service"
)

// AdminHandler serves the auth-gated log query endpoints.
type AdminHandler struct {
	service *service.LogService
}

func NewAdminHandler(svc *service.LogService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Handles GET /admin/logs
func (h *AdminHandler) GetLogs(c *gin.Context) {
	query := service.LogQuery{
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "pageSize"),
		RequestMethod:  c.Query("requestMethod"),
		RequestPath:    c.Query("requestPath"),
		ResponseStatus: c.Query("responseStatus"),
		Success:        c.Query("success"),
		StartDate:      c.Query("startDate"),
		EndDate:        c.Query("endDate"),
	}

	result, err := h.service.GetLogs(c.Request.Context(), query)
	if err != nil {
		queryFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"total":      result.Total,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalPages": result.TotalPages,
		"data":       result.Data,
	})
}

// Handles GET /admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	query := service.StatsQuery{
		StartDate:     c.Query("startDate"),
		EndDate:       c.Query("endDate"),
		RequestPath:   c.Query("requestPath"),
		RequestMethod: c.Query("requestMethod"),
	}

	stats, err := h.service.GetStats(c.Request.Context(), query)
	if err != nil {
		queryFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// Handles GET /admin/overview
func (h *AdminHandler) GetOverview(c *gin.Context) {
	overview, err := h.service.GetOverview(c.Request.Context())
	if err != nil {
		queryFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    overview,
	})
}

// Handles GET /admin/stats/status-codes
func (h *AdminHandler) GetStatusCodeStats(c *gin.Context) {
	stats, err := h.service.GetStatusCodeStats(c.Request.Context(), rangeQuery(c))
	if err != nil {
		queryFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// Handles GET /admin/stats/top-paths
func (h *AdminHandler) GetTopPaths(c *gin.Context) {
	stats, err := h.service.GetTopPaths(c.Request.Context(), rangeQuery(c), queryInt(c, "limit"))
	if err != nil {
		queryFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// Handles GET /admin/stats/hourly-trend
func (h *AdminHandler) GetHourlyTrend(c *gin.Context) {
	stats, err := h.service.GetHourlyTrend(c.Request.Context(), rangeQuery(c))
	if err != nil {
		queryFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

func rangeQuery(c *gin.Context) service.RangeQuery {
	return service.RangeQuery{
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
}

func queryInt(c *gin.Context, key string) int {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func queryFailed(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
