package handler

import (
	"net/http"

	"cmms-backend/internal/middleware"
	"cmms-backend/internal/service"
	"cmms-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SuggestionHandler struct {
	suggestionService service.SuggestionService
}

func NewSuggestionHandler(suggestionService service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

func (h *SuggestionHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/suggestions")
	group.Use(middleware.Authenticated())
	{
		group.POST("", h.Suggest)
	}
}

// Suggest proposes a fix from the asset's closure history
// @Summary      Suggest fix
// @Description  Proposes a likely fix for a reported problem from the asset's resolved incident history. Returns available=false when generation is not possible.
// @Tags         suggestions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SuggestRequest  true  "Suggestion Payload"
// @Success      200      {object}  response.Response{data=service.SuggestionResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/suggestions [post]
func (h *SuggestionHandler) Suggest(c *gin.Context) {
	var req service.SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	suggestion, err := h.suggestionService.Suggest(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, suggestion))
}
