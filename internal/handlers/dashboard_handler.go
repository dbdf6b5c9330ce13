package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/question-bank-service/internal/services"
	"github.com/SAP-F-2025/question-bank-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
}

func NewDashboardHandler(service services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetStats returns collection-wide statistics
// @Summary Get question bank statistics
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentQuestions returns the most recently created questions
// @Summary Get recently created questions
// @Tags dashboard
// @Produce json
// @Param limit query int false "Maximum rows (default 10, max 100)"
// @Success 200 {object} services.RecentQuestionsResponse
// @Router /dashboard/recent [get]
func (h *DashboardHandler) GetRecentQuestions(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	response, err := h.service.GetRecentQuestions(c.Request.Context(), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
