package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/service"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
	"github.com/classpulse/classpulse-api/pkg/response"
)

// MoodHandler exposes mood submission and history endpoints.
type MoodHandler struct {
	moods *service.MoodService
}

// NewMoodHandler constructs handler.
func NewMoodHandler(moods *service.MoodService) *MoodHandler {
	return &MoodHandler{moods: moods}
}

// Submit godoc
// @Summary Submit the daily mood survey
// @Description One submission per student per class per calendar day
// @Tags Moods
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitMoodRequest true "Survey answers"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /moods/submit [post]
func (h *MoodHandler) Submit(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.SubmitMoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mood submission payload"))
		return
	}

	res, err := h.moods.SubmitTest(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// History godoc
// @Summary Mood history for a user
// @Description Students read their own history; teachers read their students'
// @Tags Moods
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param order query string false "asc or desc (default desc)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /moods/history/{id} [get]
func (h *MoodHandler) History(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ascending := strings.EqualFold(c.DefaultQuery("order", "desc"), "asc")
	points, err := h.moods.History(c.Request.Context(), principal, c.Param("id"), ascending)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points, nil)
}
