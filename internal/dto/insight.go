package dto

import (
	"time"

	"github.com/classpulse/classpulse-api/internal/models"
)

// ClassSummaryResponse aggregates a class's mood entries.
type ClassSummaryResponse struct {
	ClassID           string                      `json:"class_id"`
	TotalEntries      int                         `json:"total_entries"`
	AverageScore      float64                     `json:"average_score"`
	Distribution      map[models.MoodCategory]int `json:"mood_distribution"`
	DominantMood      models.MoodCategory         `json:"dominant_mood"`
	SuggestedTemplate string                      `json:"suggested_template"`
}

// ClassRecommendationResponse maps the dominant mood to a teaching
// recommendation.
type ClassRecommendationResponse struct {
	ClassID        string              `json:"class_id"`
	DominantMood   models.MoodCategory `json:"dominant_mood"`
	Recommendation string              `json:"recommendation"`
}

// TeacherRollupResponse unions mood entries across all of a teacher's
// students. HasData is false when no student has submitted yet; the
// aggregate fields are zero-valued in that case.
type TeacherRollupResponse struct {
	TeacherID     string                      `json:"teacher_id"`
	TotalStudents int                         `json:"total_students"`
	TotalEntries  int                         `json:"total_entries"`
	HasData       bool                        `json:"has_data"`
	AverageScore  float64                     `json:"average_score,omitempty"`
	Distribution  map[models.MoodCategory]int `json:"mood_distribution,omitempty"`
	DominantMood  models.MoodCategory         `json:"dominant_mood,omitempty"`
}

// StudentLatestMood is one roster row of the latest-moods listing.
type StudentLatestMood struct {
	StudentID string              `json:"student_id"`
	Username  string              `json:"username"`
	Score     int                 `json:"score"`
	Mood      models.MoodCategory `json:"mood"`
	Timestamp time.Time           `json:"timestamp"`
}

// StudentChartSeries is one student's score series for charting,
// ordered by timestamp ascending.
type StudentChartSeries struct {
	StudentID string   `json:"student_id"`
	Username  string   `json:"username"`
	Labels    []string `json:"labels"`
	Scores    []int    `json:"scores"`
}
