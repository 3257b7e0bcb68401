package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisStatus captures the analysis job lifecycle. PENDING is the
// only initial state; COMPLETED and FAILED are terminal and never
// revisited.
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "PENDING"
	AnalysisStatusCompleted AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed    AnalysisStatus = "FAILED"
)

// TemplateType selects the presentation structure requested from the
// content generator.
type TemplateType string

const (
	TemplateBalanced    TemplateType = "balanced"
	TemplateInteractive TemplateType = "interactive"
	TemplateVisual      TemplateType = "visual"
)

// MoodAnalysis is the structured payload returned by the first
// collaborator call. RawAnalysis carries the verbatim text when the
// collaborator response could not be decoded.
type MoodAnalysis struct {
	GeneralAtmosphere       string   `json:"general_atmosphere,omitempty"`
	MoodTrends              []string `json:"mood_trends,omitempty"`
	NotablePoints           []string `json:"notable_points,omitempty"`
	TeachingRecommendations []string `json:"teaching_recommendations,omitempty"`
	RawAnalysis             string   `json:"raw_analysis,omitempty"`
}

// PresentationSection is one rendered slide section.
type PresentationSection struct {
	Title             string   `json:"title"`
	Content           string   `json:"content"`
	Activities        []string `json:"activities,omitempty"`
	VisualSuggestions []string `json:"visual_suggestions,omitempty"`
}

// PresentationContent is the structured payload returned by the second
// collaborator call. Error is populated instead of the content fields
// when the job terminated in FAILED.
type PresentationContent struct {
	Title      string                `json:"title,omitempty"`
	Sections   []PresentationSection `json:"sections,omitempty"`
	RawContent string                `json:"raw_content,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// AnalysisJob is an asynchronous unit of work that turns class mood
// aggregates into generated presentation content. Exclusively owned by
// the teacher that created it; mutated only by the background worker.
type AnalysisJob struct {
	ID                  string               `db:"id" json:"id"`
	TeacherID           string               `db:"teacher_id" json:"teacher_id"`
	ClassID             string               `db:"class_id" json:"class_id"`
	Subject             string               `db:"subject" json:"subject"`
	Topic               string               `db:"topic" json:"topic"`
	TemplateType        TemplateType         `db:"template_type" json:"template_type"`
	MoodAnalysis        *MoodAnalysis        `db:"mood_analysis" json:"mood_analysis,omitempty"`
	PresentationContent *PresentationContent `db:"presentation_content" json:"presentation_content,omitempty"`
	Status              AnalysisStatus       `db:"status" json:"status"`
	AverageMoodScore    *float64             `db:"average_mood_score" json:"average_mood_score,omitempty"`
	DominantMood        *MoodCategory        `db:"dominant_mood" json:"dominant_mood,omitempty"`
	CreatedAt           time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time            `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the job reached a final state.
func (j *AnalysisJob) Terminal() bool {
	return j.Status == AnalysisStatusCompleted || j.Status == AnalysisStatusFailed
}

// Value marshals the payload to JSON for persistence.
func (m MoodAnalysis) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal mood analysis: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the struct.
func (m *MoodAnalysis) Scan(value interface{}) error {
	return scanJSON(value, m, "MoodAnalysis")
}

// Value marshals the payload to JSON for persistence.
func (p PresentationContent) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal presentation content: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the struct.
func (p *PresentationContent) Scan(value interface{}) error {
	return scanJSON(value, p, "PresentationContent")
}

func scanJSON(value, dest interface{}, kind string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, kind)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return nil
}
