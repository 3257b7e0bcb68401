package dto

import (
	"time"

	"github.com/classpulse/classpulse-api/internal/models"
)

// SubmitMoodRequest captures POST /moods/submit payload. Answers are
// per-question survey values; the score is their sum.
type SubmitMoodRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	ClassID string `json:"class_id" validate:"required"`
	Answers []int  `json:"answers" validate:"required,min=1,dive,min=0"`
}

// SubmitMoodResponse is returned after a successful submission.
type SubmitMoodResponse struct {
	EntryID string              `json:"entry_id"`
	Score   int                 `json:"score"`
	Mood    models.MoodCategory `json:"mood"`
}

// HistoryPoint is one entry in a user's mood history.
type HistoryPoint struct {
	Timestamp time.Time           `json:"timestamp"`
	Score     int                 `json:"score"`
	Mood      models.MoodCategory `json:"mood"`
}
