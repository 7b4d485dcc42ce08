package handler

import (
	"net/http"
	"time"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/model"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/reports")
	group.Use(middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor))
	{
		group.GET("/work-orders", h.ExportWorkOrders)
	}
}

// ExportWorkOrders streams the work-order history as xlsx
// @Summary      Export work order history
// @Description  Downloads the work-order history as an xlsx workbook, filterable by asset and date range
// @Tags         reports
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        asset_id  query  string  false  "Filter by asset"
// @Param        from      query  string  false  "Range start (RFC3339)"
// @Param        to        query  string  false  "Range end (RFC3339)"
// @Success      200  {file}    file
// @Failure      400  {object}  response.Response
// @Router       /api/reports/work-orders [get]
func (h *ReportHandler) ExportWorkOrders(c *gin.Context) {
	filter := service.WorkOrderReportFilter{AssetID: c.Query("asset_id")}

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid from date: "+err.Error()))
			return
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid to date: "+err.Error()))
			return
		}
		filter.To = &parsed
	}

	data, filename, err := h.reportService.ExportWorkOrderHistory(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
