package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/service"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
	"github.com/classpulse/classpulse-api/pkg/response"
)

// AdviceHandler exposes suggestion and template advice endpoints.
type AdviceHandler struct {
	advice *service.AdviceService
}

// NewAdviceHandler constructs handler.
func NewAdviceHandler(advice *service.AdviceService) *AdviceHandler {
	return &AdviceHandler{advice: advice}
}

// MoodSuggestion godoc
// @Summary Personal suggestion from the latest mood
// @Tags Advice
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /advice/suggestion/{id} [get]
func (h *AdviceHandler) MoodSuggestion(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	suggestion, err := h.advice.MoodSuggestion(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}

// TemplateAdvice godoc
// @Summary Presentation template advice for a student's latest mood
// @Tags Advice
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.TemplateAdviceRequest true "Target student and class"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /advice/template [post]
func (h *AdviceHandler) TemplateAdvice(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.TemplateAdviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template advice payload"))
		return
	}

	advice, err := h.advice.TemplateAdvice(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advice, nil)
}
