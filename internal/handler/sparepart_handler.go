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

type SparePartHandler struct {
	sparePartService service.SparePartService
}

func NewSparePartHandler(sparePartService service.SparePartService) *SparePartHandler {
	return &SparePartHandler{sparePartService: sparePartService}
}

func (h *SparePartHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/spare-parts")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.List)
		group.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Create)
		group.PUT("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Update)
		group.DELETE("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.Delete)
		group.POST("/:id/adjust-stock", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), h.AdjustStock)
	}
}

// List returns paginated spare parts
// @Summary      List spare parts
// @Description  Retrieves paginated spare parts with stock levels
// @Tags         spare-parts
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int   false  "Page number (default 1)"
// @Param        limit      query     int   false  "Number of items per page (default 20)"
// @Param        below_min  query     bool  false  "Only parts under their minimum stock"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/spare-parts [get]
func (h *SparePartHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	belowMin, _ := strconv.ParseBool(c.DefaultQuery("below_min", "false"))

	parts, total, err := h.sparePartService.List(c.Request.Context(), params.Page, params.Limit, belowMin)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, parts, total, params.Page, params.Limit))
}

// Create registers a spare part
// @Summary      Create spare part
// @Description  Registers a stocked consumable
// @Tags         spare-parts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSparePartRequest  true  "Create Spare Part Payload"
// @Success      201      {object}  response.Response{data=service.SparePartResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/spare-parts [post]
func (h *SparePartHandler) Create(c *gin.Context) {
	var req service.CreateSparePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	part, err := h.sparePartService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, part))
}

// Update edits a spare part
// @Summary      Update spare part
// @Description  Updates a spare part's metadata, minimum stock and unit cost
// @Tags         spare-parts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Spare Part ID"
// @Param        payload  body      service.UpdateSparePartRequest  true  "Update Spare Part Payload"
// @Success      200      {object}  response.Response{data=service.SparePartResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/spare-parts/{id} [put]
func (h *SparePartHandler) Update(c *gin.Context) {
	var req service.UpdateSparePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	part, err := h.sparePartService.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, part))
}

// Delete removes a spare part
// @Summary      Delete spare part
// @Description  Soft deletes a spare part
// @Tags         spare-parts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Spare Part ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/spare-parts/{id} [delete]
func (h *SparePartHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.sparePartService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Spare part deleted successfully"))
}

// AdjustStock applies a manual stock correction
// @Summary      Adjust stock
// @Description  Applies a manual stock delta (restock or correction). A drop under minimum stock alerts supervisors.
// @Tags         spare-parts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Spare Part ID"
// @Param        payload  body      service.AdjustStockRequest  true  "Stock Adjustment Payload"
// @Success      200      {object}  response.Response{data=service.SparePartResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/spare-parts/{id}/adjust-stock [post]
func (h *SparePartHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	part, err := h.sparePartService.AdjustStock(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, part))
}
