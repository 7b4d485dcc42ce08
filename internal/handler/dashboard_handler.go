package handler

import (
	"net/http"
	"time"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/dashboard")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.GetDashboard)
	}
}

// GetDashboard returns plant-wide maintenance metrics
// @Summary      Get dashboard
// @Description  Aggregated maintenance metrics for a time range (defaults to the last 30 days)
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        start_date  query     string  false  "Range start (RFC3339, default now-30d)"
// @Param        end_date    query     string  false  "Range end (RFC3339, default now)"
// @Success      200  {object}  response.Response{data=service.DashboardResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -30)

	if raw := c.Query("start_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid start_date: "+err.Error()))
			return
		}
		startDate = parsed
	}
	if raw := c.Query("end_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid end_date: "+err.Error()))
			return
		}
		endDate = parsed
	}

	dashboard, err := h.dashboardService.GetDashboard(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}
