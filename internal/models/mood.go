package models

import "time"

// MoodCategory is one of five fixed ordinal labels derived from a
// survey score.
type MoodCategory string

const (
	MoodExhausted  MoodCategory = "EXHAUSTED"
	MoodDistracted MoodCategory = "DISTRACTED"
	MoodNormal     MoodCategory = "NORMAL"
	MoodCurious    MoodCategory = "CURIOUS"
	MoodEnergetic  MoodCategory = "ENERGETIC"
)

// MoodCategories lists all categories in ascending score order. The
// order is load-bearing: dominant-mood ties are broken by the earliest
// category in this slice.
var MoodCategories = []MoodCategory{
	MoodExhausted,
	MoodDistracted,
	MoodNormal,
	MoodCurious,
	MoodEnergetic,
}

// Valid reports whether the category is one of the five known labels.
func (m MoodCategory) Valid() bool {
	for _, c := range MoodCategories {
		if c == m {
			return true
		}
	}
	return false
}

// MoodEntry is a single self-reported mood record. Entries are
// immutable after creation and unique per (user, class, calendar day).
type MoodEntry struct {
	ID        string       `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	ClassID   string       `db:"class_id" json:"class_id"`
	Score     int          `db:"score" json:"score"`
	Mood      MoodCategory `db:"mood" json:"mood"`
	Timestamp time.Time    `db:"timestamp" json:"timestamp"`
}

// MoodAggregate summarises a non-empty set of mood entries.
type MoodAggregate struct {
	TotalEntries int                  `json:"total_entries"`
	AverageScore float64              `json:"average_score"`
	Distribution map[MoodCategory]int `json:"distribution"`
	DominantMood MoodCategory         `json:"dominant_mood"`
}
