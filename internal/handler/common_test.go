package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms-backend/internal/model"
	"cmms-backend/internal/service"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestActorFromContext(t *testing.T) {
	c, _ := newTestContext(t)
	id := uuid.New()
	c.Set("userID", id.String())
	c.Set("userRole", string(model.RoleSupervisor))

	actor, ok := actorFromContext(c)
	require.True(t, ok)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, model.RoleSupervisor, actor.Role)
}

func TestActorFromContext_MissingIdentity(t *testing.T) {
	c, w := newTestContext(t)

	_, ok := actorFromContext(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRespondServiceError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected int
	}{
		{"unauthorized", service.ErrUnauthorized, http.StatusForbidden},
		{"wrapped unauthorized", fmt.Errorf("context: %w", service.ErrUnauthorized), http.StatusForbidden},
		{"guard violation", service.ErrGuardViolation, http.StatusConflict},
		{"not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("work order not found: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{"unexpected", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext(t)
			respondServiceError(c, tc.err)
			assert.Equal(t, tc.expected, w.Code)
		})
	}
}
