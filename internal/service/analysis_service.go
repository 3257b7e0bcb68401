package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/models"
	"github.com/classpulse/classpulse-api/internal/repository"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
	"github.com/classpulse/classpulse-api/pkg/jobs"
)

const analysisJobType = "mood_analysis"

type analysisJobStore interface {
	Create(ctx context.Context, job *models.AnalysisJob) error
	GetByID(ctx context.Context, id string) (*models.AnalysisJob, error)
	Finalize(ctx context.Context, id string, params repository.FinalizeAnalysisJobParams) (bool, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.AnalysisJob, error)
	ListPending(ctx context.Context, limit int) ([]models.AnalysisJob, error)
}

type classEntryLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.MoodEntry, error)
}

type contentGenerator interface {
	AnalyzeMoodData(ctx context.Context, entries []models.MoodEntry) (*models.MoodAnalysis, error)
	GeneratePresentation(ctx context.Context, analysis *models.MoodAnalysis, subject, topic string, template models.TemplateType) (*models.PresentationContent, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AnalysisService owns the analysis job lifecycle: creation, status
// reads, listing, rendering, and the background execution that moves a
// job from PENDING to a terminal state.
type AnalysisService struct {
	repo      analysisJobStore
	moods     classEntryLister
	access    accessChecker
	generator contentGenerator
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	policy    ScoringPolicy
	metrics   *MetricsService

	generationTimeout time.Duration
	recoveryBatch     int
}

// NewAnalysisService constructs an AnalysisService. The queue is
// attached afterwards with SetQueue because the worker handler and the
// queue reference each other.
func NewAnalysisService(repo analysisJobStore, moods classEntryLister, access accessChecker, generator contentGenerator, logger *zap.Logger, policy ScoringPolicy, metrics *MetricsService, generationTimeout time.Duration, recoveryBatch int) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(policy.Bands) == 0 {
		policy = DefaultScoringPolicy()
	}
	if generationTimeout <= 0 {
		generationTimeout = 2 * time.Minute
	}
	return &AnalysisService{
		repo:              repo,
		moods:             moods,
		access:            access,
		generator:         generator,
		validator:         validator.New(),
		logger:            logger,
		policy:            policy,
		metrics:           metrics,
		generationTimeout: generationTimeout,
		recoveryBatch:     recoveryBatch,
	}
}

// SetQueue attaches the dispatch queue used by CreateJob and recovery.
func (s *AnalysisService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// CreateJob persists a PENDING job and hands it to the worker pool.
// The response returns immediately; the caller polls GetStatus.
func (s *AnalysisService) CreateJob(ctx context.Context, principal models.Principal, req dto.CreateAnalysisRequest) (*dto.AnalysisJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid analysis request payload")
	}

	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireTeacherOwnsClass(ctx, teacher.ID, req.ClassID); err != nil {
		return nil, err
	}

	template := req.TemplateType
	if template == "" {
		template = models.TemplateBalanced
	}
	switch template {
	case models.TemplateBalanced, models.TemplateInteractive, models.TemplateVisual:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown template type %q", template))
	}

	job := &models.AnalysisJob{
		TeacherID:    teacher.ID,
		ClassID:      req.ClassID,
		Subject:      req.Subject,
		Topic:        req.Topic,
		TemplateType: template,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create analysis job")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: analysisJobType}); err != nil {
		// The row stays PENDING and will be picked up by the next
		// startup recovery sweep.
		s.logger.Warn("analysis job enqueue failed, deferred to recovery",
			zap.String("job_id", job.ID), zap.Error(err))
	}

	return &dto.AnalysisJobResponse{ID: job.ID, Status: job.Status}, nil
}

// GetStatus returns job state for polling. Only the owning teacher may
// read a job.
func (s *AnalysisService) GetStatus(ctx context.Context, principal models.Principal, jobID string) (*dto.AnalysisStatusResponse, error) {
	job, err := s.ownedJob(ctx, principal, jobID)
	if err != nil {
		return nil, err
	}

	resp := &dto.AnalysisStatusResponse{ID: job.ID, Status: job.Status}
	switch job.Status {
	case models.AnalysisStatusCompleted:
		resp.PresentationContent = job.PresentationContent
	case models.AnalysisStatusFailed:
		if job.PresentationContent != nil {
			resp.Error = job.PresentationContent.Error
		}
		if resp.Error == "" {
			resp.Error = "analysis failed"
		}
	}
	return resp, nil
}

// List returns all jobs created by the acting teacher, newest first.
func (s *AnalysisService) List(ctx context.Context, principal models.Principal) ([]dto.AnalysisListItem, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list analysis jobs")
	}
	items := make([]dto.AnalysisListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.AnalysisListItem{
			ID:               row.ID,
			ClassID:          row.ClassID,
			Subject:          row.Subject,
			Topic:            row.Topic,
			Status:           row.Status,
			DominantMood:     row.DominantMood,
			AverageMoodScore: row.AverageMoodScore,
			CreatedAt:        row.CreatedAt,
		})
	}
	return items, nil
}

// Render produces a document from a completed job's stored content.
// Rendering reads the stored payload only, so repeating it returns the
// same document. Markdown is the only supported format.
func (s *AnalysisService) Render(ctx context.Context, principal models.Principal, jobID, format string) (*dto.RenderResponse, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
	case "pptx":
		return nil, appErrors.Clone(appErrors.ErrUnsupportedFormat, "pptx export is not supported, use markdown")
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown export format %q", format))
	}

	job, err := s.ownedJob(ctx, principal, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.AnalysisStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("analysis job is %s, rendering requires a completed job", job.Status))
	}

	content := renderMarkdown(job)
	return &dto.RenderResponse{
		Content:  content,
		Filename: fmt.Sprintf("presentation_%s.md", job.ID),
	}, nil
}

// RecoverPendingJobs re-enqueues jobs left PENDING by an earlier
// process exit. Called once at startup after the queue is running.
func (s *AnalysisService) RecoverPendingJobs(ctx context.Context) error {
	pending, err := s.repo.ListPending(ctx, s.recoveryBatch)
	if err != nil {
		return fmt.Errorf("recover pending jobs: %w", err)
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: analysisJobType}); err != nil {
			return fmt.Errorf("recover pending jobs: %w", err)
		}
		s.logger.Info("re-enqueued pending analysis job", zap.String("job_id", job.ID))
	}
	return nil
}

// Handle is the queue worker entry point. It performs the full
// analysis pipeline and always tries to leave the job in a terminal
// state: generation failures become FAILED, they are never retried.
func (s *AnalysisService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load analysis job %s: %w", job.ID, err)
	}
	if record.Terminal() {
		s.logger.Debug("skipping finalized analysis job", zap.String("job_id", record.ID))
		return nil
	}

	entries, err := s.moods.ListByClass(ctx, record.ClassID)
	if err != nil {
		return s.fail(ctx, record, fmt.Errorf("load class entries: %w", err))
	}

	average := float64(s.policy.DefaultScore)
	dominant := s.policy.DefaultMood
	if aggregate, ok := Aggregate(entries); ok {
		average = aggregate.AverageScore
		dominant = aggregate.DominantMood
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	started := time.Now()
	analysis, err := s.generator.AnalyzeMoodData(genCtx, entries)
	if err != nil {
		return s.fail(ctx, record, fmt.Errorf("mood analysis: %w", err))
	}
	content, err := s.generator.GeneratePresentation(genCtx, analysis, record.Subject, record.Topic, record.TemplateType)
	if err != nil {
		return s.fail(ctx, record, fmt.Errorf("presentation generation: %w", err))
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(time.Since(started))
	}

	done, err := s.repo.Finalize(ctx, record.ID, repository.FinalizeAnalysisJobParams{
		Status:              models.AnalysisStatusCompleted,
		MoodAnalysis:        analysis,
		PresentationContent: content,
		AverageMoodScore:    &average,
		DominantMood:        &dominant,
	})
	if err != nil {
		return fmt.Errorf("finalize analysis job %s: %w", record.ID, err)
	}
	if !done {
		s.logger.Warn("analysis job was finalized concurrently", zap.String("job_id", record.ID))
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordJobOutcome(models.AnalysisStatusCompleted)
	}
	s.logger.Info("analysis job completed",
		zap.String("job_id", record.ID),
		zap.String("class_id", record.ClassID),
		zap.Duration("generation", time.Since(started)))
	return nil
}

// fail transitions the job to FAILED with the error recorded in the
// presentation payload. The terminal guard keeps a concurrently
// finalized job untouched.
func (s *AnalysisService) fail(ctx context.Context, record *models.AnalysisJob, cause error) error {
	s.logger.Error("analysis job failed",
		zap.String("job_id", record.ID),
		zap.String("class_id", record.ClassID),
		zap.Error(cause))

	done, err := s.repo.Finalize(ctx, record.ID, repository.FinalizeAnalysisJobParams{
		Status:              models.AnalysisStatusFailed,
		PresentationContent: &models.PresentationContent{Error: cause.Error()},
	})
	if err != nil {
		return fmt.Errorf("finalize failed job %s: %w", record.ID, err)
	}
	if done && s.metrics != nil {
		s.metrics.RecordJobOutcome(models.AnalysisStatusFailed)
	}
	return nil
}

func (s *AnalysisService) ownedJob(ctx context.Context, principal models.Principal, jobID string) (*models.AnalysisJob, error) {
	teacher, err := RequireTeacher(principal)
	if err != nil {
		return nil, err
	}
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "analysis job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analysis job")
	}
	if job.TeacherID != teacher.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "analysis job belongs to another teacher")
	}
	return job, nil
}

// renderMarkdown lays the stored presentation out as a markdown
// document: title heading, one section per slide with optional
// activity and visual lists, horizontal rules between sections.
func renderMarkdown(job *models.AnalysisJob) string {
	var b strings.Builder

	content := job.PresentationContent
	title := ""
	if content != nil {
		title = content.Title
	}
	if title == "" {
		title = fmt.Sprintf("%s: %s", job.Subject, job.Topic)
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if content == nil || (len(content.Sections) == 0 && content.RawContent == "") {
		b.WriteString("_No presentation content was generated._\n")
		return b.String()
	}

	if len(content.Sections) == 0 {
		b.WriteString(content.RawContent)
		b.WriteString("\n")
		return b.String()
	}

	for i, section := range content.Sections {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", section.Title)
		if section.Content != "" {
			b.WriteString(section.Content)
			b.WriteString("\n\n")
		}
		if len(section.Activities) > 0 {
			b.WriteString("### Activities\n\n")
			for _, activity := range section.Activities {
				fmt.Fprintf(&b, "- %s\n", activity)
			}
			b.WriteString("\n")
		}
		if len(section.VisualSuggestions) > 0 {
			b.WriteString("### Visual Suggestions\n\n")
			for _, visual := range section.VisualSuggestions {
				fmt.Fprintf(&b, "- %s\n", visual)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
