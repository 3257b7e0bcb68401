package dto

import "github.com/classpulse/classpulse-api/internal/models"

// MoodSuggestionResponse is the personal suggestion derived from a
// user's latest mood entry.
type MoodSuggestionResponse struct {
	UserID     string              `json:"user_id"`
	Mood       models.MoodCategory `json:"mood"`
	Suggestion string              `json:"suggestion"`
}

// TemplateAdviceRequest captures POST /advice/template payload.
type TemplateAdviceRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	ClassID string `json:"class_id" validate:"required"`
}

// TemplateAdvice describes the recommended presentation template.
type TemplateAdvice struct {
	Template string   `json:"template"`
	Sections []string `json:"sections"`
	Note     string   `json:"note"`
}

// TemplateAdviceResponse wraps the advice with the mood it came from.
type TemplateAdviceResponse struct {
	UserID         string              `json:"user_id"`
	Mood           models.MoodCategory `json:"mood"`
	Recommendation TemplateAdvice      `json:"recommendation"`
}
