package handler

import (
	"errors"
	"net/http"

	"cmms-backend/internal/model"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// actorFromContext builds the explicit service actor from the verified
// claims the auth middleware stored on the request context
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	id, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid user identity"))
		return service.Actor{}, false
	}
	return service.Actor{
		ID:   id,
		Role: model.Role(c.GetString("userRole")),
	}, true
}

// respondServiceError maps the service failure taxonomy onto HTTP codes
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrGuardViolation):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}
