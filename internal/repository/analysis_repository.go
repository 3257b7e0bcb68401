package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpulse/classpulse-api/internal/models"
)

// AnalysisRepository persists analysis job records.
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository constructs the repository.
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create inserts a new analysis job row with generated defaults.
func (r *AnalysisRepository) Create(ctx context.Context, job *models.AnalysisJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.AnalysisStatusPending
	}
	if job.TemplateType == "" {
		job.TemplateType = models.TemplateBalanced
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	const query = `INSERT INTO analysis_jobs (id, teacher_id, class_id, subject, topic, template_type, mood_analysis, presentation_content, status, average_mood_score, dominant_mood, created_at, updated_at)
VALUES (:id, :teacher_id, :class_id, :subject, :topic, :template_type, :mood_analysis, :presentation_content, :status, :average_mood_score, :dominant_mood, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create analysis job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*models.AnalysisJob, error) {
	const query = `SELECT id, teacher_id, class_id, subject, topic, template_type, mood_analysis, presentation_content, status, average_mood_score, dominant_mood, created_at, updated_at
FROM analysis_jobs WHERE id = $1`
	var job models.AnalysisJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// FinalizeAnalysisJobParams defines the fields written when a job
// reaches a terminal state.
type FinalizeAnalysisJobParams struct {
	Status              models.AnalysisStatus
	MoodAnalysis        *models.MoodAnalysis
	PresentationContent *models.PresentationContent
	AverageMoodScore    *float64
	DominantMood        *models.MoodCategory
}

// Finalize transitions a PENDING job to a terminal state. The guard on
// the current status makes the transition idempotent: a stale duplicate
// execution observes false and must not touch the record again.
func (r *AnalysisRepository) Finalize(ctx context.Context, id string, params FinalizeAnalysisJobParams) (bool, error) {
	set := []string{"status = $1", "updated_at = $2"}
	args := []interface{}{params.Status, time.Now().UTC()}
	argPos := 3

	if params.MoodAnalysis != nil {
		set = append(set, fmt.Sprintf("mood_analysis = $%d", argPos))
		args = append(args, *params.MoodAnalysis)
		argPos++
	}
	if params.PresentationContent != nil {
		set = append(set, fmt.Sprintf("presentation_content = $%d", argPos))
		args = append(args, *params.PresentationContent)
		argPos++
	}
	if params.AverageMoodScore != nil {
		set = append(set, fmt.Sprintf("average_mood_score = $%d", argPos))
		args = append(args, *params.AverageMoodScore)
		argPos++
	}
	if params.DominantMood != nil {
		set = append(set, fmt.Sprintf("dominant_mood = $%d", argPos))
		args = append(args, *params.DominantMood)
		argPos++
	}

	query := fmt.Sprintf("UPDATE analysis_jobs SET %s WHERE id = $%d AND status = '%s'",
		strings.Join(set, ", "), argPos, models.AnalysisStatusPending)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("finalize analysis job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize analysis job: %w", err)
	}
	return affected == 1, nil
}

// ListByTeacher returns a teacher's jobs, newest first.
func (r *AnalysisRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.AnalysisJob, error) {
	const query = `SELECT id, teacher_id, class_id, subject, topic, template_type, mood_analysis, presentation_content, status, average_mood_score, dominant_mood, created_at, updated_at
FROM analysis_jobs WHERE teacher_id = $1 ORDER BY created_at DESC`
	var jobs []models.AnalysisJob
	if err := r.db.SelectContext(ctx, &jobs, query, teacherID); err != nil {
		return nil, fmt.Errorf("list analysis jobs: %w", err)
	}
	return jobs, nil
}

// ListPending fetches pending jobs oldest first (cold start recovery).
func (r *AnalysisRepository) ListPending(ctx context.Context, limit int) ([]models.AnalysisJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, teacher_id, class_id, subject, topic, template_type, mood_analysis, presentation_content, status, average_mood_score, dominant_mood, created_at, updated_at
FROM analysis_jobs WHERE status = 'PENDING' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.AnalysisJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list pending analysis jobs: %w", err)
	}
	return jobs, nil
}
