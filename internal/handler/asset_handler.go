package handler

import (
	"net/http"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/model"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/pagination"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AssetHandler struct {
	assetService service.AssetService
}

func NewAssetHandler(assetService service.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

func (h *AssetHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/assets")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Create)
		group.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Update)
		group.DELETE("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Delete)
	}
}

// List returns paginated assets
// @Summary      List assets
// @Description  Retrieves paginated plant machines, optionally filtered by area
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Param        area   query     string  false  "Filter by plant area"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	assets, total, err := h.assetService.List(c.Request.Context(), params.Page, params.Limit, c.Query("area"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, assets, total, params.Page, params.Limit))
}

// Get retrieves one asset
// @Summary      Get asset
// @Description  Retrieves a single machine by ID
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.assetService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, asset))
}

// Create registers a machine
// @Summary      Create asset
// @Description  Registers a new machine in the plant
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAssetRequest  true  "Create Asset Payload"
// @Success      201      {object}  response.Response{data=service.AssetResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	var req service.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	asset, err := h.assetService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, asset))
}

// Update edits a machine
// @Summary      Update asset
// @Description  Updates a machine's details and status
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Asset ID"
// @Param        payload  body      service.UpdateAssetRequest  true  "Update Asset Payload"
// @Success      200      {object}  response.Response{data=service.AssetResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/assets/{id} [put]
func (h *AssetHandler) Update(c *gin.Context) {
	var req service.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	asset, err := h.assetService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, asset))
}

// Delete removes a machine
// @Summary      Delete asset
// @Description  Soft deletes a machine. Rejected while it still has open work orders.
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/assets/{id} [delete]
func (h *AssetHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.assetService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Asset deleted successfully"))
}
