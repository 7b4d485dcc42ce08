package handler

import (
	"net/http"
	"strconv"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/model"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/pagination"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ComponentHandler struct {
	componentService service.ComponentService
}

func NewComponentHandler(componentService service.ComponentService) *ComponentHandler {
	return &ComponentHandler{componentService: componentService}
}

func (h *ComponentHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/components")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Create)
		group.POST("/:id/measurements", h.AddMeasurement)
		group.POST("/:id/reassign", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Reassign)
		group.POST("/:id/scrap", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Scrap)
	}
}

// List returns paginated components
// @Summary      List components
// @Description  Retrieves wear-tracked components, filterable by type, warehouse, asset and scrapped state
// @Tags         components
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Param        type       query     string  false  "SCREW or BARREL"
// @Param        warehouse  query     string  false  "RETINATO or MAGLIATO"
// @Param        asset_id   query     string  false  "Filter by mounted asset"
// @Param        scrapped   query     bool    false  "Filter by scrapped flag"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/components [get]
func (h *ComponentHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.ComponentFilter{
		Type:      model.ComponentType(c.Query("type")),
		Warehouse: model.Warehouse(c.Query("warehouse")),
		AssetID:   c.Query("asset_id"),
		Page:      params.Page,
		Limit:     params.Limit,
	}
	if raw := c.Query("scrapped"); raw != "" {
		scrapped, _ := strconv.ParseBool(raw)
		filter.Scrapped = &scrapped
	}

	components, total, err := h.componentService.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, components, total, params.Page, params.Limit))
}

// Get retrieves one component with its measurement history
// @Summary      Get component
// @Description  Retrieves a component with its full measurement history and mounted asset
// @Tags         components
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Component ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/components/{id} [get]
func (h *ComponentHandler) Get(c *gin.Context) {
	component, err := h.componentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, component))
}

// Create registers a new component
// @Summary      Create component
// @Description  Registers a screw or barrel in one of the two warehouses
// @Tags         components
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateComponentRequest  true  "Create Component Payload"
// @Success      201      {object}  response.Response{data=service.ComponentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/components [post]
func (h *ComponentHandler) Create(c *gin.Context) {
	var req service.CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	component, err := h.componentService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, component))
}

// AddMeasurement records a diameter reading
// @Summary      Add measurement
// @Description  Appends a diameter reading and recomputes the persisted wear status from it
// @Tags         components
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Component ID"
// @Param        payload  body      service.AddMeasurementRequest  true  "Measurement Payload"
// @Success      201      {object}  response.Response{data=service.ComponentResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/components/{id}/measurements [post]
func (h *ComponentHandler) AddMeasurement(c *gin.Context) {
	var req service.AddMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	component, err := h.componentService.AddMeasurement(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, component))
}

// Reassign mounts the component on an asset or returns it to its warehouse
// @Summary      Reassign component
// @Description  Mounts the component on an asset, evicting any same-type component already mounted there. The evicted component, if any, is returned alongside.
// @Tags         components
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Component ID"
// @Param        payload  body      service.ReassignComponentRequest  true  "Reassign Payload (empty asset_id returns to warehouse)"
// @Success      200      {object}  response.Response{data=service.ReassignResult}
// @Failure      409      {object}  response.Response
// @Router       /api/components/{id}/reassign [post]
func (h *ComponentHandler) Reassign(c *gin.Context) {
	var req service.ReassignComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	result, err := h.componentService.Reassign(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Scrap flags a component as scrap
// @Summary      Scrap component
// @Description  Flags the component as scrapped and clears any asset assignment. The record and its measurements are kept.
// @Tags         components
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Component ID"
// @Success      200  {object}  response.Response{data=service.ComponentResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/components/{id}/scrap [post]
func (h *ComponentHandler) Scrap(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	component, err := h.componentService.Scrap(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, component))
}
