package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/models"
	"github.com/classpulse/classpulse-api/internal/repository"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
	"github.com/classpulse/classpulse-api/pkg/jobs"
)

type mockAnalysisStore struct {
	jobs map[string]*models.AnalysisJob
}

func newMockAnalysisStore() *mockAnalysisStore {
	return &mockAnalysisStore{jobs: map[string]*models.AnalysisJob{}}
}

func (m *mockAnalysisStore) Create(ctx context.Context, job *models.AnalysisJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if job.Status == "" {
		job.Status = models.AnalysisStatusPending
	}
	if job.TemplateType == "" {
		job.TemplateType = models.TemplateBalanced
	}
	job.CreatedAt = time.Now()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockAnalysisStore) GetByID(ctx context.Context, id string) (*models.AnalysisJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *job
	return &cp, nil
}

func (m *mockAnalysisStore) Finalize(ctx context.Context, id string, params repository.FinalizeAnalysisJobParams) (bool, error) {
	job, ok := m.jobs[id]
	if !ok || job.Status != models.AnalysisStatusPending {
		return false, nil
	}
	job.Status = params.Status
	job.MoodAnalysis = params.MoodAnalysis
	job.PresentationContent = params.PresentationContent
	job.AverageMoodScore = params.AverageMoodScore
	job.DominantMood = params.DominantMood
	return true, nil
}

func (m *mockAnalysisStore) ListByTeacher(ctx context.Context, teacherID string) ([]models.AnalysisJob, error) {
	var out []models.AnalysisJob
	for _, job := range m.jobs {
		if job.TeacherID == teacherID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockAnalysisStore) ListPending(ctx context.Context, limit int) ([]models.AnalysisJob, error) {
	var out []models.AnalysisJob
	for _, job := range m.jobs {
		if job.Status == models.AnalysisStatusPending {
			out = append(out, *job)
		}
	}
	return out, nil
}

type mockGenerator struct {
	analyzeErr   error
	generateErr  error
	analyzeCalls int
	seenEntries  []models.MoodEntry
	seenTemplate models.TemplateType
}

func (m *mockGenerator) AnalyzeMoodData(ctx context.Context, entries []models.MoodEntry) (*models.MoodAnalysis, error) {
	m.analyzeCalls++
	m.seenEntries = entries
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	return &models.MoodAnalysis{GeneralAtmosphere: "steady"}, nil
}

func (m *mockGenerator) GeneratePresentation(ctx context.Context, analysis *models.MoodAnalysis, subject, topic string, template models.TemplateType) (*models.PresentationContent, error) {
	m.seenTemplate = template
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &models.PresentationContent{
		Title: subject + ": " + topic,
		Sections: []models.PresentationSection{
			{Title: "Introduction", Content: "Opening notes", Activities: []string{"Warm-up quiz"}},
			{Title: "Core", Content: "Main material", VisualSuggestions: []string{"Timeline diagram"}},
		},
	}, nil
}

type mockEnqueuer struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockEnqueuer) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func newAnalysisService(store *mockAnalysisStore, moods *mockClassMoodStore, gen *mockGenerator, access *mockAccess) (*AnalysisService, *mockEnqueuer) {
	svc := NewAnalysisService(store, moods, access, gen, nil, DefaultScoringPolicy(), nil, time.Minute, 20)
	queue := &mockEnqueuer{}
	svc.SetQueue(queue)
	return svc, queue
}

func TestCreateJobEnqueuesPendingJob(t *testing.T) {
	store := newMockAnalysisStore()
	svc, queue := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})

	res, err := svc.CreateJob(context.Background(), models.Teacher{ID: "t1"}, dto.CreateAnalysisRequest{
		ClassID: "c1", Subject: "History", Topic: "Revolutions",
	})
	require.NoError(t, err)

	assert.Equal(t, models.AnalysisStatusPending, res.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, res.ID, queue.enqueued[0].ID)
	assert.Equal(t, models.TemplateBalanced, store.jobs[res.ID].TemplateType)
}

func TestCreateJobRejectsUnknownTemplate(t *testing.T) {
	svc, _ := newAnalysisService(newMockAnalysisStore(), &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})

	_, err := svc.CreateJob(context.Background(), models.Teacher{ID: "t1"}, dto.CreateAnalysisRequest{
		ClassID: "c1", Subject: "History", Topic: "Revolutions", TemplateType: "fancy",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobRequiresClassOwnership(t *testing.T) {
	svc, queue := newAnalysisService(newMockAnalysisStore(), &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{ownsClassErr: appErrors.ErrForbidden})

	_, err := svc.CreateJob(context.Background(), models.Teacher{ID: "t1"}, dto.CreateAnalysisRequest{
		ClassID: "c9", Subject: "History", Topic: "Revolutions",
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Empty(t, queue.enqueued)
}

func TestCreateJobSurvivesEnqueueFailure(t *testing.T) {
	store := newMockAnalysisStore()
	svc := NewAnalysisService(store, &mockClassMoodStore{}, &mockAccess{}, &mockGenerator{}, nil, DefaultScoringPolicy(), nil, time.Minute, 20)
	svc.SetQueue(&mockEnqueuer{err: errors.New("queue stopped")})

	res, err := svc.CreateJob(context.Background(), models.Teacher{ID: "t1"}, dto.CreateAnalysisRequest{
		ClassID: "c1", Subject: "History", Topic: "Revolutions",
	})
	require.NoError(t, err)
	// Row stays PENDING for the startup recovery sweep.
	assert.Equal(t, models.AnalysisStatusPending, store.jobs[res.ID].Status)
}

func TestHandleCompletesJob(t *testing.T) {
	store := newMockAnalysisStore()
	moods := &mockClassMoodStore{byClass: map[string][]models.MoodEntry{
		"c1": {entry("s1", 10, models.MoodDistracted), entry("s2", 20, models.MoodCurious), entry("s3", 9, models.MoodDistracted)},
	}}
	gen := &mockGenerator{}
	svc, _ := newAnalysisService(store, moods, gen, &mockAccess{})

	require.NoError(t, store.Create(context.Background(), &models.AnalysisJob{
		ID: "job-1", TeacherID: "t1", ClassID: "c1", Subject: "Math", Topic: "Fractions",
		TemplateType: models.TemplateInteractive,
	}))

	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	job := store.jobs["job-1"]
	assert.Equal(t, models.AnalysisStatusCompleted, job.Status)
	require.NotNil(t, job.AverageMoodScore)
	assert.InDelta(t, 13.0, *job.AverageMoodScore, 0.001)
	require.NotNil(t, job.DominantMood)
	assert.Equal(t, models.MoodDistracted, *job.DominantMood)
	assert.Equal(t, models.TemplateInteractive, gen.seenTemplate)
	require.NotNil(t, job.PresentationContent)
	assert.Equal(t, "Math: Fractions", job.PresentationContent.Title)
}

func TestHandleEmptyClassUsesNeutralDefaults(t *testing.T) {
	store := newMockAnalysisStore()
	svc, _ := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})

	require.NoError(t, store.Create(context.Background(), &models.AnalysisJob{
		ID: "job-1", TeacherID: "t1", ClassID: "c1", Subject: "Math", Topic: "Fractions",
	}))
	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-1"}))

	job := store.jobs["job-1"]
	assert.Equal(t, models.AnalysisStatusCompleted, job.Status)
	require.NotNil(t, job.AverageMoodScore)
	assert.Equal(t, 15.0, *job.AverageMoodScore)
	require.NotNil(t, job.DominantMood)
	assert.Equal(t, models.MoodNormal, *job.DominantMood)
}

func TestHandleGenerationFailureIsTerminal(t *testing.T) {
	cases := []struct {
		name string
		gen  *mockGenerator
	}{
		{"analysis call fails", &mockGenerator{analyzeErr: errors.New("upstream 500")}},
		{"presentation call fails", &mockGenerator{generateErr: errors.New("upstream timeout")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMockAnalysisStore()
			svc, _ := newAnalysisService(store, &mockClassMoodStore{}, tc.gen, &mockAccess{})

			require.NoError(t, store.Create(context.Background(), &models.AnalysisJob{
				ID: "job-1", TeacherID: "t1", ClassID: "c1", Subject: "Math", Topic: "Fractions",
			}))
			require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-1"}))

			job := store.jobs["job-1"]
			assert.Equal(t, models.AnalysisStatusFailed, job.Status)
			require.NotNil(t, job.PresentationContent)
			assert.Contains(t, job.PresentationContent.Error, "upstream")
		})
	}
}

func TestHandleSkipsFinalizedJob(t *testing.T) {
	store := newMockAnalysisStore()
	gen := &mockGenerator{}
	svc, _ := newAnalysisService(store, &mockClassMoodStore{}, gen, &mockAccess{})

	store.jobs["job-1"] = &models.AnalysisJob{
		ID: "job-1", TeacherID: "t1", ClassID: "c1", Status: models.AnalysisStatusCompleted,
	}

	require.NoError(t, svc.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Zero(t, gen.analyzeCalls)
	assert.Equal(t, models.AnalysisStatusCompleted, store.jobs["job-1"].Status)
}

func TestGetStatusShapes(t *testing.T) {
	store := newMockAnalysisStore()
	svc, _ := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})

	store.jobs["pending"] = &models.AnalysisJob{ID: "pending", TeacherID: "t1", Status: models.AnalysisStatusPending}
	store.jobs["done"] = &models.AnalysisJob{
		ID: "done", TeacherID: "t1", Status: models.AnalysisStatusCompleted,
		PresentationContent: &models.PresentationContent{Title: "Deck"},
	}
	store.jobs["failed"] = &models.AnalysisJob{
		ID: "failed", TeacherID: "t1", Status: models.AnalysisStatusFailed,
		PresentationContent: &models.PresentationContent{Error: "generation failed"},
	}

	res, err := svc.GetStatus(context.Background(), models.Teacher{ID: "t1"}, "pending")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusPending, res.Status)
	assert.Nil(t, res.PresentationContent)

	res, err = svc.GetStatus(context.Background(), models.Teacher{ID: "t1"}, "done")
	require.NoError(t, err)
	require.NotNil(t, res.PresentationContent)
	assert.Equal(t, "Deck", res.PresentationContent.Title)

	res, err = svc.GetStatus(context.Background(), models.Teacher{ID: "t1"}, "failed")
	require.NoError(t, err)
	assert.Equal(t, "generation failed", res.Error)
}

func TestGetStatusOwnership(t *testing.T) {
	store := newMockAnalysisStore()
	svc, _ := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})
	store.jobs["job-1"] = &models.AnalysisJob{ID: "job-1", TeacherID: "t1", Status: models.AnalysisStatusPending}

	_, err := svc.GetStatus(context.Background(), models.Teacher{ID: "t2"}, "job-1")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), models.Teacher{ID: "t1"}, "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRenderMarkdown(t *testing.T) {
	store := newMockAnalysisStore()
	svc, _ := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})
	store.jobs["done"] = &models.AnalysisJob{
		ID: "done", TeacherID: "t1", Subject: "Math", Topic: "Fractions",
		Status: models.AnalysisStatusCompleted,
		PresentationContent: &models.PresentationContent{
			Title: "Fractions Made Simple",
			Sections: []models.PresentationSection{
				{Title: "Introduction", Content: "Why fractions matter", Activities: []string{"Pizza slicing"}},
				{Title: "Practice", Content: "Worked examples", VisualSuggestions: []string{"Pie charts"}},
			},
		},
	}

	doc, err := svc.Render(context.Background(), models.Teacher{ID: "t1"}, "done", "markdown")
	require.NoError(t, err)

	assert.Equal(t, "presentation_done.md", doc.Filename)
	assert.Contains(t, doc.Content, "# Fractions Made Simple")
	assert.Contains(t, doc.Content, "## Introduction")
	assert.Contains(t, doc.Content, "### Activities")
	assert.Contains(t, doc.Content, "- Pizza slicing")
	assert.Contains(t, doc.Content, "### Visual Suggestions")
	assert.Contains(t, doc.Content, "---")

	// Rendering reads stored content only, so a second call is identical.
	again, err := svc.Render(context.Background(), models.Teacher{ID: "t1"}, "done", "")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, again.Content)
}

func TestRenderRejectsNonTerminalAndUnsupported(t *testing.T) {
	store := newMockAnalysisStore()
	svc, _ := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})
	store.jobs["pending"] = &models.AnalysisJob{ID: "pending", TeacherID: "t1", Status: models.AnalysisStatusPending}

	_, err := svc.Render(context.Background(), models.Teacher{ID: "t1"}, "pending", "markdown")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Render(context.Background(), models.Teacher{ID: "t1"}, "pending", "pptx")
	assert.Equal(t, appErrors.ErrUnsupportedFormat.Code, appErrors.FromError(err).Code)

	_, err = svc.Render(context.Background(), models.Teacher{ID: "t1"}, "pending", "docx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingJobs(t *testing.T) {
	store := newMockAnalysisStore()
	svc, queue := newAnalysisService(store, &mockClassMoodStore{}, &mockGenerator{}, &mockAccess{})

	store.jobs["p1"] = &models.AnalysisJob{ID: "p1", Status: models.AnalysisStatusPending}
	store.jobs["p2"] = &models.AnalysisJob{ID: "p2", Status: models.AnalysisStatusPending}
	store.jobs["d1"] = &models.AnalysisJob{ID: "d1", Status: models.AnalysisStatusCompleted}

	require.NoError(t, svc.RecoverPendingJobs(context.Background()))
	assert.Len(t, queue.enqueued, 2)
}
