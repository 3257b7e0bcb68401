package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classpulse/classpulse-api/internal/models"
)

func TestScoreToMoodBoundaries(t *testing.T) {
	policy := DefaultScoringPolicy()

	cases := []struct {
		score int
		want  models.MoodCategory
	}{
		{0, models.MoodExhausted},
		{7, models.MoodExhausted},
		{8, models.MoodDistracted},
		{12, models.MoodDistracted},
		{13, models.MoodNormal},
		{17, models.MoodNormal},
		{18, models.MoodCurious},
		{22, models.MoodCurious},
		{23, models.MoodEnergetic},
		{100, models.MoodEnergetic},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, policy.ScoreToMood(tc.score), "score %d", tc.score)
	}
}

func TestDefaultPolicyTables(t *testing.T) {
	policy := DefaultScoringPolicy()

	assert.Equal(t, 15, policy.DefaultScore)
	assert.Equal(t, models.MoodNormal, policy.DefaultMood)
	assert.Equal(t, "relax_focus", policy.Templates[models.MoodExhausted])
	assert.Equal(t, "deep_dive", policy.Templates[models.MoodEnergetic])
	assert.Equal(t, "balanced_engagement", policy.DefaultTemplate)

	// Every category carries a recommendation, suggestion, and advice plan.
	for _, category := range models.MoodCategories {
		assert.NotEmpty(t, policy.Recommendations[category], "recommendation for %s", category)
		assert.NotEmpty(t, policy.Suggestions[category], "suggestion for %s", category)
		plan := policy.TemplateAdvice[category]
		assert.NotEmpty(t, plan.Template, "plan for %s", category)
		assert.NotEmpty(t, plan.Sections, "sections for %s", category)
	}
}
