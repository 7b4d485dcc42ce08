package handler

import (
	"net/http"
	"strconv"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/pagination"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/notifications")
	group.Use(middleware.Authenticated())
	{
		group.GET("", h.List)
		group.POST("/:id/read", h.MarkRead)
		group.POST("/read-all", h.MarkAllRead)
	}
}

// List returns the caller's notifications
// @Summary      List notifications
// @Description  Retrieves the authenticated user's notifications, newest first
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int   false  "Page number (default 1)"
// @Param        limit   query     int   false  "Number of items per page (default 20)"
// @Param        unread  query     bool  false  "Only unread notifications"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	notifications, total, err := h.notificationService.List(c.Request.Context(), c.GetString("userID"), unreadOnly, params.Page, params.Limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, notifications, total, params.Page, params.Limit))
}

// MarkRead marks one notification as read
// @Summary      Mark notification read
// @Description  Marks one of the caller's notifications as read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Notification marked as read"))
}

// MarkAllRead marks every unread notification as read
// @Summary      Mark all notifications read
// @Description  Marks all of the caller's unread notifications as read
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.notificationService.MarkAllRead(c.Request.Context(), c.GetString("userID")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "All notifications marked as read"))
}
