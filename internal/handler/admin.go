package handler

import (
	"context"
	"net/http"
	"strings"

	"bangumi-calendar-service/internal/model"
	"bangumi-calendar-service/internal/repository"

	"github.com/gin-gonic/gin"
)

// AnalyticsStore is the command analytics backend
type AnalyticsStore interface {
	GetOverallStats(ctx context.Context) (*repository.OverallStats, error)
	GetCommandStats(ctx context.Context, command string) (*repository.CommandStats, error)
	ResetMetrics(ctx context.Context) error
}

// ServiceStatus is reported by GET /api/v1/status
type ServiceStatus struct {
	UpstreamBase string `json:"upstream_base"`
	ImageEnabled bool   `json:"image_enabled"`
}

// AdminHandler handles status and analytics endpoints
type AdminHandler struct {
	status    ServiceStatus
	analytics AnalyticsStore
}

// NewAdminHandler creates a new AdminHandler. analytics may be nil.
func NewAdminHandler(status ServiceStatus, analytics AnalyticsStore) *AdminHandler {
	return &AdminHandler{
		status:    status,
		analytics: analytics,
	}
}

// GetStatus returns service status
// GET /api/v1/status
func (h *AdminHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"upstream_base":     h.status.UpstreamBase,
		"image_enabled":     h.status.ImageEnabled,
		"analytics_enabled": h.analytics != nil,
	})
}

// requireAnalytics writes 503 when analytics is disabled
func (h *AdminHandler) requireAnalytics(c *gin.Context) bool {
	if h.analytics != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, model.APIResponse{
		Code:  503,
		Error: "统计未启用：未配置 REDIS_URL",
	})
	return false
}

// GetAnalytics returns command analytics
// GET /api/v1/analytics
func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	if !h.requireAnalytics(c) {
		return
	}

	stats, err := h.analytics.GetOverallStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: stats,
	})
}

// GetCommandStats returns stats for a single command
// GET /api/v1/analytics/command?name=今日番剧
func (h *AdminHandler) GetCommandStats(c *gin.Context) {
	if !h.requireAnalytics(c) {
		return
	}

	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, model.APIResponse{
			Code:  400,
			Error: "name parameter required",
		})
		return
	}

	stats, err := h.analytics.GetCommandStats(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code: 200,
		Data: stats,
	})
}

// ResetAnalytics resets all analytics data
// DELETE /api/v1/analytics
func (h *AdminHandler) ResetAnalytics(c *gin.Context) {
	if !h.requireAnalytics(c) {
		return
	}

	if err := h.analytics.ResetMetrics(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, model.APIResponse{
			Code:  500,
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.APIResponse{
		Code:    200,
		Message: "所有统计数据已重置",
	})
}
