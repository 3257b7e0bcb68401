package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/models"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
)

type mockLatestStore struct {
	latest        *models.MoodEntry
	latestInClass *models.MoodEntry
}

func (m *mockLatestStore) LatestByUser(ctx context.Context, userID string) (*models.MoodEntry, error) {
	if m.latest == nil {
		return nil, sql.ErrNoRows
	}
	return m.latest, nil
}

func (m *mockLatestStore) LatestByUserAndClass(ctx context.Context, userID, classID string) (*models.MoodEntry, error) {
	if m.latestInClass == nil {
		return nil, sql.ErrNoRows
	}
	return m.latestInClass, nil
}

func TestMoodSuggestionForOwnEntry(t *testing.T) {
	store := &mockLatestStore{latest: &models.MoodEntry{
		UserID: "s1", Score: 5, Mood: models.MoodExhausted, Timestamp: time.Now(),
	}}
	svc := NewAdviceService(store, &mockAccess{}, nil, DefaultScoringPolicy())

	res, err := svc.MoodSuggestion(context.Background(), studentPrincipal(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.MoodExhausted, res.Mood)
	assert.Contains(t, res.Suggestion, "rest")
}

func TestMoodSuggestionTeacherForOwnStudent(t *testing.T) {
	store := &mockLatestStore{latest: &models.MoodEntry{
		UserID: "s1", Score: 20, Mood: models.MoodCurious, Timestamp: time.Now(),
	}}
	svc := NewAdviceService(store, &mockAccess{}, nil, DefaultScoringPolicy())

	res, err := svc.MoodSuggestion(context.Background(), models.Teacher{ID: "t1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.MoodCurious, res.Mood)
}

func TestMoodSuggestionAccessDenied(t *testing.T) {
	store := &mockLatestStore{latest: &models.MoodEntry{Mood: models.MoodNormal}}

	svc := NewAdviceService(store, &mockAccess{}, nil, DefaultScoringPolicy())
	_, err := svc.MoodSuggestion(context.Background(), studentPrincipal(), "s2")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	svc = NewAdviceService(store, &mockAccess{fromTeacherErr: appErrors.ErrForbidden}, nil, DefaultScoringPolicy())
	_, err = svc.MoodSuggestion(context.Background(), models.Teacher{ID: "t2"}, "s1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestMoodSuggestionWithoutEntries(t *testing.T) {
	svc := NewAdviceService(&mockLatestStore{}, &mockAccess{}, nil, DefaultScoringPolicy())
	_, err := svc.MoodSuggestion(context.Background(), studentPrincipal(), "s1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTemplateAdvicePlans(t *testing.T) {
	cases := []struct {
		mood     models.MoodCategory
		template string
	}{
		{models.MoodExhausted, "calm_structure"},
		{models.MoodDistracted, "simple_focus"},
		{models.MoodNormal, "balanced_flow"},
		{models.MoodCurious, "interactive_deep"},
		{models.MoodEnergetic, "visual_dive"},
	}
	for _, tc := range cases {
		t.Run(string(tc.mood), func(t *testing.T) {
			store := &mockLatestStore{latestInClass: &models.MoodEntry{
				UserID: "s1", ClassID: "c1", Mood: tc.mood, Timestamp: time.Now(),
			}}
			svc := NewAdviceService(store, &mockAccess{}, nil, DefaultScoringPolicy())

			res, err := svc.TemplateAdvice(context.Background(), studentPrincipal(), dto.TemplateAdviceRequest{
				UserID: "s1", ClassID: "c1",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.mood, res.Mood)
			assert.Equal(t, tc.template, res.Recommendation.Template)
			assert.NotEmpty(t, res.Recommendation.Sections)
		})
	}
}

func TestTemplateAdviceAuthorization(t *testing.T) {
	store := &mockLatestStore{latestInClass: &models.MoodEntry{Mood: models.MoodNormal}}

	t.Run("student outside own class", func(t *testing.T) {
		svc := NewAdviceService(store, &mockAccess{sameClassErr: appErrors.ErrForbidden}, nil, DefaultScoringPolicy())
		_, err := svc.TemplateAdvice(context.Background(), studentPrincipal(), dto.TemplateAdviceRequest{
			UserID: "s1", ClassID: "c2",
		})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})

	t.Run("teacher without class ownership", func(t *testing.T) {
		svc := NewAdviceService(store, &mockAccess{ownsClassErr: appErrors.ErrForbidden}, nil, DefaultScoringPolicy())
		_, err := svc.TemplateAdvice(context.Background(), models.Teacher{ID: "t2"}, dto.TemplateAdviceRequest{
			UserID: "s1", ClassID: "c1",
		})
		assert.ErrorIs(t, err, appErrors.ErrForbidden)
	})
}

func TestTemplateAdviceNoEntryInClass(t *testing.T) {
	svc := NewAdviceService(&mockLatestStore{}, &mockAccess{}, nil, DefaultScoringPolicy())
	_, err := svc.TemplateAdvice(context.Background(), studentPrincipal(), dto.TemplateAdviceRequest{
		UserID: "s1", ClassID: "c1",
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
