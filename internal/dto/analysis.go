package dto

import (
	"time"

	"github.com/classpulse/classpulse-api/internal/models"
)

// CreateAnalysisRequest captures POST /analysis/generate payload.
type CreateAnalysisRequest struct {
	ClassID      string              `json:"class_id" validate:"required"`
	Subject      string              `json:"subject" validate:"required"`
	Topic        string              `json:"topic" validate:"required"`
	TemplateType models.TemplateType `json:"template_type,omitempty"`
}

// AnalysisJobResponse is returned after enqueueing a job.
type AnalysisJobResponse struct {
	ID     string                `json:"id"`
	Status models.AnalysisStatus `json:"status"`
}

// AnalysisStatusResponse exposes job state. PresentationContent is
// only populated for COMPLETED jobs; Error only for FAILED ones.
type AnalysisStatusResponse struct {
	ID                  string                      `json:"id"`
	Status              models.AnalysisStatus       `json:"status"`
	PresentationContent *models.PresentationContent `json:"presentation_content,omitempty"`
	Error               string                      `json:"error,omitempty"`
}

// AnalysisListItem is one row of a teacher's job listing.
type AnalysisListItem struct {
	ID               string                `json:"id"`
	ClassID          string                `json:"class_id"`
	Subject          string                `json:"subject"`
	Topic            string                `json:"topic"`
	Status           models.AnalysisStatus `json:"status"`
	DominantMood     *models.MoodCategory  `json:"dominant_mood,omitempty"`
	AverageMoodScore *float64              `json:"average_mood_score,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

// RenderResponse carries a rendered presentation document.
type RenderResponse struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}
