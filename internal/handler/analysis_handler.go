package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/service"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
	"github.com/classpulse/classpulse-api/pkg/response"
)

// AnalysisHandler exposes the asynchronous analysis job endpoints.
type AnalysisHandler struct {
	analysis *service.AnalysisService
}

// NewAnalysisHandler constructs handler.
func NewAnalysisHandler(analysis *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysis: analysis}
}

// Create godoc
// @Summary Start an analysis job
// @Description Enqueues a PENDING job; poll the status endpoint for the result
// @Tags Analysis
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAnalysisRequest true "Analysis request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analysis/generate [post]
func (h *AnalysisHandler) Create(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid analysis request payload"))
		return
	}

	job, err := h.analysis.CreateJob(c.Request.Context(), principal, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Poll an analysis job
// @Tags Analysis
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analysis/{id}/status [get]
func (h *AnalysisHandler) Status(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.analysis.GetStatus(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List the teacher's analysis jobs
// @Tags Analysis
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /analysis [get]
func (h *AnalysisHandler) List(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.analysis.List(c.Request.Context(), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Render godoc
// @Summary Render a completed job as a document
// @Description Markdown only; pptx returns 501
// @Tags Analysis
// @Produce plain
// @Security BearerAuth
// @Param id path string true "Job ID"
// @Param format query string false "markdown (default) or pptx"
// @Success 200 {string} string "Markdown document"
// @Failure 409 {object} response.Envelope
// @Failure 501 {object} response.Envelope
// @Router /analysis/{id}/render [get]
func (h *AnalysisHandler) Render(c *gin.Context) {
	principal, ok := principalFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.analysis.Render(c.Request.Context(), principal, c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc.Content))
}
