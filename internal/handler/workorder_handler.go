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

type WorkOrderHandler struct {
	workOrderService service.WorkOrderService
}

func NewWorkOrderHandler(workOrderService service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{workOrderService: workOrderService}
}

func (h *WorkOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/work-orders")
	group.Use(middleware.Authenticated())
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)

		group.POST("/:id/approve", h.Approve)
		group.POST("/:id/start", h.Start)
		group.POST("/:id/pause", h.Pause)
		group.POST("/:id/resume", h.Resume)
		group.POST("/:id/complete", h.Complete)
		group.POST("/:id/mark-done", h.MarkDone)
		group.POST("/:id/review", h.Review)
		group.POST("/:id/cancel", h.Cancel)

		group.POST("/:id/checklist", h.AddChecklistItem)
		group.PATCH("/:id/checklist/:itemID", h.SetChecklistItem)
		group.POST("/:id/labor", h.AddLaborLog)
		group.POST("/:id/parts", h.AddPart)
	}
}

// Create opens a new work order
// @Summary      Create work order
// @Description  Creates a work order. Requests by regular users enter the approval queue; supervisor-created orders open immediately.
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWorkOrderRequest  true  "Create Work Order Payload"
// @Success      201      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/work-orders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	wo, err := h.workOrderService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, wo))
}

// List returns paginated work orders
// @Summary      List work orders
// @Description  Retrieves a paginated, filterable list of work orders
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        status       query     string  false  "Filter by status"
// @Param        asset_id     query     string  false  "Filter by asset"
// @Param        assigned_to  query     string  false  "Filter by assigned technician"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/work-orders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.WorkOrderFilter{
		Status:       model.WorkOrderStatus(c.Query("status")),
		AssetID:      c.Query("asset_id"),
		AssignedToID: c.Query("assigned_to"),
		Page:         params.Page,
		Limit:        params.Limit,
	}

	orders, total, err := h.workOrderService.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, orders, total, params.Page, params.Limit))
}

// Get retrieves one work order with all relations
// @Summary      Get work order
// @Description  Retrieves a single work order with checklist, labor logs, parts, timers and EWO
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/work-orders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.workOrderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Approve moves a pending request into the assigned queue
// @Summary      Approve work order request
// @Description  Approves a PENDING_APPROVAL request, assigning a technician and priority. Supervisors only.
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Work Order ID"
// @Param        payload  body      service.ApproveWorkOrderRequest  true  "Approval Payload"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/approve [post]
func (h *WorkOrderHandler) Approve(c *gin.Context) {
	var req service.ApproveWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	wo, err := h.workOrderService.Approve(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// transition factors the shared shape of the argument-free lifecycle actions
func (h *WorkOrderHandler) transition(c *gin.Context, fn func(actor service.Actor, id string) (service.WorkOrderResponse, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	wo, err := fn(actor, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Start begins work on an order
// @Summary      Start work order
// @Description  Moves an OPEN or ASSIGNED work order to IN_PROGRESS and opens a timer session
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/start [post]
func (h *WorkOrderHandler) Start(c *gin.Context) {
	h.transition(c, func(actor service.Actor, id string) (service.WorkOrderResponse, error) {
		return h.workOrderService.Start(c.Request.Context(), actor, id)
	})
}

// Pause suspends work on an order
// @Summary      Pause work order
// @Description  Moves an IN_PROGRESS work order to ON_HOLD and closes the running timer
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/pause [post]
func (h *WorkOrderHandler) Pause(c *gin.Context) {
	h.transition(c, func(actor service.Actor, id string) (service.WorkOrderResponse, error) {
		return h.workOrderService.Pause(c.Request.Context(), actor, id)
	})
}

// Resume restarts a paused order
// @Summary      Resume work order
// @Description  Moves an ON_HOLD work order back to IN_PROGRESS, opening a fresh timer session
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/resume [post]
func (h *WorkOrderHandler) Resume(c *gin.Context) {
	h.transition(c, func(actor service.Actor, id string) (service.WorkOrderResponse, error) {
		return h.workOrderService.Resume(c.Request.Context(), actor, id)
	})
}

// Complete finishes the work, requiring a fully ticked checklist
// @Summary      Complete work order
// @Description  Moves an IN_PROGRESS work order to COMPLETED. Every checklist item must be done.
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/complete [post]
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	h.transition(c, func(actor service.Actor, id string) (service.WorkOrderResponse, error) {
		return h.workOrderService.Complete(c.Request.Context(), actor, id)
	})
}

// MarkDone hands the order over for supervisor review
// @Summary      Mark work order done
// @Description  Moves an OPEN or IN_PROGRESS work order to PENDING_REVIEW
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/mark-done [post]
func (h *WorkOrderHandler) MarkDone(c *gin.Context) {
	h.transition(c, func(actor service.Actor, id string) (service.WorkOrderResponse, error) {
		return h.workOrderService.MarkDone(c.Request.Context(), actor, id)
	})
}

// Review closes or rejects a work order pending review
// @Summary      Review work order
// @Description  Approves (closing, subject to the EWO labor-hours guard) or rejects a PENDING_REVIEW work order. Supervisors only.
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Work Order ID"
// @Param        payload  body      service.ReviewWorkOrderRequest  true  "Review Payload"
// @Success      200      {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/review [post]
func (h *WorkOrderHandler) Review(c *gin.Context) {
	var req service.ReviewWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	wo, err := h.workOrderService.Review(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, wo))
}

// Cancel aborts a non-terminal work order
// @Summary      Cancel work order
// @Description  Cancels any non-terminal work order. Supervisors only.
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Work Order ID"
// @Success      200  {object}  response.Response{data=service.WorkOrderResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/work-orders/{id}/cancel [post]
func (h *WorkOrderHandler) Cancel(c *gin.Context) {
	h.transition(c, func(actor service.Actor, id string) (service.WorkOrderResponse, error) {
		return h.workOrderService.Cancel(c.Request.Context(), actor, id)
	})
}

// AddChecklistItem appends a required activity
// @Summary      Add checklist item
// @Description  Appends a checklist item to a non-terminal work order
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Work Order ID"
// @Param        payload  body      service.ChecklistItemRequest  true  "Checklist Item Payload"
// @Success      201      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/checklist [post]
func (h *WorkOrderHandler) AddChecklistItem(c *gin.Context) {
	var req service.ChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.workOrderService.AddChecklistItem(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Checklist item added"))
}

// SetChecklistItem ticks a checklist item on or off
// @Summary      Set checklist item state
// @Description  Marks a checklist item completed or not completed
// @Tags         work-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id        path      string  true  "Work Order ID"
// @Param        itemID    path      string  true  "Checklist Item ID"
// @Param        completed query     bool    true  "Completed state"
// @Success      200       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/work-orders/{id}/checklist/{itemID} [patch]
func (h *WorkOrderHandler) SetChecklistItem(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	completed, _ := strconv.ParseBool(c.DefaultQuery("completed", "true"))

	if err := h.workOrderService.SetChecklistItem(c.Request.Context(), actor, c.Param("id"), c.Param("itemID"), completed); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Checklist item updated"))
}

// AddLaborLog records hours spent on the order
// @Summary      Add labor log
// @Description  Records technician hours on a non-terminal work order. Hours feed the EWO closure guard.
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Work Order ID"
// @Param        payload  body      service.AddLaborLogRequest  true  "Labor Log Payload"
// @Success      201      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/labor [post]
func (h *WorkOrderHandler) AddLaborLog(c *gin.Context) {
	var req service.AddLaborLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.workOrderService.AddLaborLog(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Labor log recorded"))
}

// AddPart consumes spare-part stock on the order
// @Summary      Add spare part consumption
// @Description  Consumes spare-part stock for a work order. Stock decrement and consumption record commit atomically.
// @Tags         work-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Work Order ID"
// @Param        payload  body      service.AddPartRequest  true  "Part Consumption Payload"
// @Success      201      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/work-orders/{id}/parts [post]
func (h *WorkOrderHandler) AddPart(c *gin.Context) {
	var req service.AddPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	if err := h.workOrderService.AddPart(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, "Part consumption recorded"))
}
