package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/models"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
)

type classMoodStore interface {
	ListByClass(ctx context.Context, classID string) ([]models.MoodEntry, error)
	ListByUser(ctx context.Context, userID string, ascending bool) ([]models.MoodEntry, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]models.MoodEntry, error)
	LatestByUser(ctx context.Context, userID string) (*models.MoodEntry, error)
}

type studentRoster interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.User, error)
}

// InsightService aggregates stored mood entries into class summaries,
// recommendations, and teacher roll-ups.
type InsightService struct {
	moods    classMoodStore
	roster   studentRoster
	access   accessChecker
	cache    *CacheService
	logger   *zap.Logger
	policy   ScoringPolicy
	cacheTTL time.Duration
}

// NewInsightService constructs an InsightService.
func NewInsightService(moods classMoodStore, roster studentRoster, access accessChecker, cache *CacheService, logger *zap.Logger, policy ScoringPolicy, cacheTTL time.Duration) *InsightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(policy.Bands) == 0 {
		policy = DefaultScoringPolicy()
	}
	return &InsightService{
		moods:    moods,
		roster:   roster,
		access:   access,
		cache:    cache,
		logger:   logger,
		policy:   policy,
		cacheTTL: cacheTTL,
	}
}

// Aggregate summarises a set of entries. Returns false for an empty
// set: callers must treat "no data" as a distinct outcome, never as a
// zero average. Dominant-mood ties break toward the earliest category
// in the fixed enum order, keeping the result deterministic.
func Aggregate(entries []models.MoodEntry) (models.MoodAggregate, bool) {
	if len(entries) == 0 {
		return models.MoodAggregate{}, false
	}

	total := 0
	distribution := make(map[models.MoodCategory]int, len(models.MoodCategories))
	for _, entry := range entries {
		total += entry.Score
		distribution[entry.Mood]++
	}

	dominant := models.MoodCategories[0]
	best := -1
	for _, category := range models.MoodCategories {
		if count := distribution[category]; count > best {
			best = count
			dominant = category
		}
	}

	average := float64(total) / float64(len(entries))
	return models.MoodAggregate{
		TotalEntries: len(entries),
		AverageScore: math.Round(average*100) / 100,
		Distribution: distribution,
		DominantMood: dominant,
	}, true
}

// ClassSummary computes the class aggregate and suggested template.
// Teachers only, and only for classes they own. An empty class is an
// explicit no-data outcome.
func (s *InsightService) ClassSummary(ctx context.Context, principal models.Principal, classID string) (*dto.ClassSummaryResponse, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireTeacherOwnsClass(ctx, teacher.ID, classID); err != nil {
		return nil, err
	}

	key := ClassSummaryKey(classID)
	if s.cache.Enabled() {
		var cached dto.ClassSummaryResponse
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	entries, err := s.moods.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class entries")
	}
	aggregate, ok := Aggregate(entries)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no mood data for this class")
	}

	template, ok := s.policy.Templates[aggregate.DominantMood]
	if !ok {
		template = s.policy.DefaultTemplate
	}

	summary := &dto.ClassSummaryResponse{
		ClassID:           classID,
		TotalEntries:      aggregate.TotalEntries,
		AverageScore:      aggregate.AverageScore,
		Distribution:      aggregate.Distribution,
		DominantMood:      aggregate.DominantMood,
		SuggestedTemplate: template,
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, summary, s.cacheTTL)
	}
	return summary, nil
}

// ClassRecommendation maps the class's dominant mood to a fixed
// teaching recommendation.
func (s *InsightService) ClassRecommendation(ctx context.Context, principal models.Principal, classID string) (*dto.ClassRecommendationResponse, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireTeacherOwnsClass(ctx, teacher.ID, classID); err != nil {
		return nil, err
	}

	entries, err := s.moods.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class entries")
	}
	aggregate, ok := Aggregate(entries)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no mood data for this class")
	}

	recommendation, ok := s.policy.Recommendations[aggregate.DominantMood]
	if !ok {
		recommendation = s.policy.DefaultRecommendation
	}
	return &dto.ClassRecommendationResponse{
		ClassID:        classID,
		DominantMood:   aggregate.DominantMood,
		Recommendation: recommendation,
	}, nil
}

// TeacherRollup unions mood entries across all students owned by the
// acting teacher. Zero students and zero entries are explicit empty
// results, not errors.
func (s *InsightService) TeacherRollup(ctx context.Context, principal models.Principal, teacherID string) (*dto.TeacherRollupResponse, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	if err := RequireSelf(teacher.ID, teacherID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only view your own students")
	}

	students, err := s.roster.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	rollup := &dto.TeacherRollupResponse{TeacherID: teacherID, TotalStudents: len(students)}
	if len(students) == 0 {
		return rollup, nil
	}

	ids := make([]string, 0, len(students))
	for _, student := range students {
		ids = append(ids, student.ID)
	}
	entries, err := s.moods.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student entries")
	}

	aggregate, ok := Aggregate(entries)
	if !ok {
		return rollup, nil
	}
	rollup.TotalEntries = aggregate.TotalEntries
	rollup.HasData = true
	rollup.AverageScore = aggregate.AverageScore
	rollup.Distribution = aggregate.Distribution
	rollup.DominantMood = aggregate.DominantMood
	return rollup, nil
}

// StudentLatestMoods returns each of the teacher's students with their
// most recent entry. Students without entries are omitted.
func (s *InsightService) StudentLatestMoods(ctx context.Context, principal models.Principal, teacherID string) ([]dto.StudentLatestMood, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	if err := RequireSelf(teacher.ID, teacherID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only view your own students")
	}

	students, err := s.roster.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no students for this teacher")
	}

	results := make([]dto.StudentLatestMood, 0, len(students))
	for _, student := range students {
		latest, err := s.moods.LatestByUser(ctx, student.ID)
		if err != nil {
			continue
		}
		results = append(results, dto.StudentLatestMood{
			StudentID: student.ID,
			Username:  student.Username,
			Score:     latest.Score,
			Mood:      latest.Mood,
			Timestamp: latest.Timestamp,
		})
	}
	return results, nil
}

// StudentChartData returns per-student ascending score series for the
// teacher's roster. Students without entries are skipped.
func (s *InsightService) StudentChartData(ctx context.Context, principal models.Principal, teacherID string) ([]dto.StudentChartSeries, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	if err := RequireSelf(teacher.ID, teacherID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only view your own students")
	}

	students, err := s.roster.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no students for this teacher")
	}

	series := make([]dto.StudentChartSeries, 0, len(students))
	for _, student := range students {
		entries, err := s.moods.ListByUser(ctx, student.ID, true)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student entries")
		}
		if len(entries) == 0 {
			continue
		}
		labels := make([]string, 0, len(entries))
		scores := make([]int, 0, len(entries))
		for _, entry := range entries {
			labels = append(labels, entry.Timestamp.Format("2006-01-02"))
			scores = append(scores, entry.Score)
		}
		series = append(series, dto.StudentChartSeries{
			StudentID: student.ID,
			Username:  student.Username,
			Labels:    labels,
			Scores:    scores,
		})
	}
	return series, nil
}
