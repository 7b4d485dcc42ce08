package handler

import (
	"net/http"
	"time"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/model"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/pagination"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func (h *ScheduleHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/schedules")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Create)
		group.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Update)
		group.DELETE("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Delete)
		group.POST("/generate-due", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.GenerateDue)
	}
}

// List returns paginated preventive schedules
// @Summary      List schedules
// @Description  Retrieves paginated preventive maintenance schedules with their due state
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	schedules, total, err := h.scheduleService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, schedules, total, params.Page, params.Limit))
}

// Get retrieves one schedule
// @Summary      Get schedule
// @Description  Retrieves a preventive schedule with its activities
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Schedule ID"
// @Success      200  {object}  response.Response{data=service.ScheduleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.scheduleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, schedule))
}

// Create registers a recurring maintenance plan
// @Summary      Create schedule
// @Description  Creates a preventive maintenance schedule for an asset
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateScheduleRequest  true  "Create Schedule Payload"
// @Success      201      {object}  response.Response{data=service.ScheduleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, schedule))
}

// Update edits a schedule
// @Summary      Update schedule
// @Description  Updates schedule metadata and cadence. The next due date is untouched; cadence changes apply from the next closure.
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Schedule ID"
// @Param        payload  body      service.UpdateScheduleRequest  true  "Update Schedule Payload"
// @Success      200      {object}  response.Response{data=service.ScheduleResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, schedule))
}

// Delete removes a schedule
// @Summary      Delete schedule
// @Description  Soft deletes a preventive schedule. Already generated work orders are unaffected.
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Schedule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.scheduleService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Schedule deleted successfully"))
}

// GenerateDue converts due schedules into work orders
// @Summary      Generate due work orders
// @Description  Creates one work order per due schedule. Idempotent: schedules with a live generated order are skipped.
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/schedules/generate-due [post]
func (h *ScheduleHandler) GenerateDue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	created, err := h.scheduleService.GenerateDueOrders(c.Request.Context(), actor, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"created": created,
	}))
}
