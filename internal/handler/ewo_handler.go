package handler

import (
	"net/http"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type EWOHandler struct {
	ewoService service.EWOService
}

func NewEWOHandler(ewoService service.EWOService) *EWOHandler {
	return &EWOHandler{ewoService: ewoService}
}

func (h *EWOHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/work-orders/:id/ewo")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.Get)
		group.PUT("", h.Submit)
		group.GET("/draft", h.Draft)
	}
}

// Get retrieves the report of a work order
// @Summary      Get EWO report
// @Description  Retrieves the emergency work order report filed for a work order
// @Tags         ewo
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.EWOResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id}/ewo [get]
func (h *EWOHandler) Get(c *gin.Context) {
	ewo, err := h.ewoService.GetByWorkOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ewo))
}

// Submit files or refiles the report
// @Summary      Submit EWO report
// @Description  Files the incident report, unblocking the closure guard. A follow-up request work order is spawned when the report asks for one.
// @Tags         ewo
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Work Order ID"
// @Param        payload  body      service.SubmitEWORequest true  "EWO Payload"
// @Success      200      {object}  response.Response{data=service.EWOResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/ewo [put]
func (h *EWOHandler) Submit(c *gin.Context) {
	var req service.SubmitEWORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ewo, err := h.ewoService.Submit(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, ewo))
}

// Draft proposes pre-filled report text
// @Summary      Draft EWO report
// @Description  Returns generated cause/solution text from the work order history. Nothing is persisted.
// @Tags         ewo
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.SubmitEWORequest}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/ewo/draft [get]
func (h *EWOHandler) Draft(c *gin.Context) {
	draft, err := h.ewoService.Draft(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}
