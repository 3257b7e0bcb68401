package service

import "github.com/classpulse/classpulse-api/internal/models"

// ScoreBand maps scores up to and including Max to a category. The
// last band acts as the catch-all for anything above it.
type ScoreBand struct {
	Max  int
	Mood models.MoodCategory
}

// TemplateAdvicePlan pairs a presentation template key with its
// section outline and a short note for the teacher.
type TemplateAdvicePlan struct {
	Template string
	Sections []string
	Note     string
}

// ScoringPolicy is the immutable configuration value injected into the
// scoring, aggregation, and recommendation components. Tests supply
// alternate tables instead of mutating globals.
type ScoringPolicy struct {
	Bands []ScoreBand

	// Neutral fallback used when a class has no mood data at all.
	DefaultScore int
	DefaultMood  models.MoodCategory

	// Class summary: dominant mood to suggested template.
	Templates       map[models.MoodCategory]string
	DefaultTemplate string

	// Class recommendation: dominant mood to teaching advice.
	Recommendations       map[models.MoodCategory]string
	DefaultRecommendation string

	// Personal suggestion shown to a student for their latest mood.
	Suggestions       map[models.MoodCategory]string
	DefaultSuggestion string

	// Mood-driven presentation template advice.
	TemplateAdvice map[models.MoodCategory]TemplateAdvicePlan
}

// ScoreToMood maps a summed survey score to its category. Total over
// all non-negative integers.
func (p ScoringPolicy) ScoreToMood(score int) models.MoodCategory {
	for _, band := range p.Bands {
		if score <= band.Max {
			return band.Mood
		}
	}
	return p.Bands[len(p.Bands)-1].Mood
}

// DefaultScoringPolicy carries the production constants.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		Bands: []ScoreBand{
			{Max: 7, Mood: models.MoodExhausted},
			{Max: 12, Mood: models.MoodDistracted},
			{Max: 17, Mood: models.MoodNormal},
			{Max: 22, Mood: models.MoodCurious},
			{Max: int(^uint(0) >> 1), Mood: models.MoodEnergetic},
		},
		DefaultScore: 15,
		DefaultMood:  models.MoodNormal,
		Templates: map[models.MoodCategory]string{
			models.MoodExhausted: "relax_focus",
			models.MoodEnergetic: "deep_dive",
		},
		DefaultTemplate: "balanced_engagement",
		Recommendations: map[models.MoodCategory]string{
			models.MoodExhausted:  "More restful, calm content is recommended.",
			models.MoodDistracted: "Use short, attention-grabbing materials.",
			models.MoodNormal:     "A balanced, standard lesson is recommended.",
			models.MoodCurious:    "Consider adding interactive activities and questions.",
			models.MoodEnergetic:  "Active methods such as group work and discussion are recommended.",
		},
		DefaultRecommendation: "No specific recommendation is available.",
		Suggestions: map[models.MoodCategory]string{
			models.MoodExhausted:  "Remember to rest a little today. Tomorrow can be a fresh start!",
			models.MoodDistracted: "A short walk might help clear your mind.",
			models.MoodNormal:     "Great! Today is a good opportunity to be productive.",
			models.MoodCurious:    "Keep exploring! It might be the perfect time to learn something new.",
			models.MoodEnergetic:  "Put that energy to good use! Share what you know and join a project.",
		},
		DefaultSuggestion: "A good moment to reflect on how your day went.",
		TemplateAdvice: map[models.MoodCategory]TemplateAdvicePlan{
			models.MoodExhausted: {
				Template: "calm_structure",
				Sections: []string{"Introduction", "Core Concepts", "One Visual", "Summary"},
				Note:     "More restful, calm content is recommended.",
			},
			models.MoodDistracted: {
				Template: "simple_focus",
				Sections: []string{"Short Definition", "Key Concepts", "One Question", "Summary"},
				Note:     "Short, attention-grabbing materials are recommended.",
			},
			models.MoodNormal: {
				Template: "balanced_flow",
				Sections: []string{"Introduction", "Details", "Examples", "Conclusion"},
				Note:     "A balanced, standard lesson is recommended.",
			},
			models.MoodCurious: {
				Template: "interactive_deep",
				Sections: []string{"Introduction", "Q&A", "Video Suggestion", "In-Depth Discussion"},
				Note:     "Interactive activities and questions can be added.",
			},
			models.MoodEnergetic: {
				Template: "visual_dive",
				Sections: []string{"Visual Tour", "Short Explanations", "Activity Suggestion", "Slogan"},
				Note:     "Active methods such as group work and discussion are recommended.",
			},
		},
	}
}
