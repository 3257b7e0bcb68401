package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/models"
	"github.com/classpulse/classpulse-api/internal/repository"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
)

type moodEntryStore interface {
	Create(ctx context.Context, entry *models.MoodEntry) error
	ExistsForDay(ctx context.Context, userID, classID string, day time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string, ascending bool) ([]models.MoodEntry, error)
}

type accessChecker interface {
	RequireTeacherOwnsClass(ctx context.Context, teacherID, classID string) error
	RequireStudentFromTeacher(ctx context.Context, teacherID, studentID string) error
	RequireSameClass(ctx context.Context, userID, classID string) error
}

type summaryCacheInvalidator interface {
	InvalidateClass(ctx context.Context, classID string)
}

// MoodService accepts survey submissions and serves per-user history.
type MoodService struct {
	repo      moodEntryStore
	access    accessChecker
	cache     summaryCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	policy    ScoringPolicy
	metrics   *MetricsService
	now       func() time.Time

	// Serializes the duplicate check and insert per (user, class) so
	// concurrent submissions for the same key cannot both pass the
	// day check. The storage unique index backs this up across
	// processes.
	submitLocks keyedMutex
}

// NewMoodService constructs a MoodService.
func NewMoodService(repo moodEntryStore, access accessChecker, cache summaryCacheInvalidator, validate *validator.Validate, logger *zap.Logger, policy ScoringPolicy, metrics *MetricsService) *MoodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if len(policy.Bands) == 0 {
		policy = DefaultScoringPolicy()
	}
	return &MoodService{
		repo:      repo,
		access:    access,
		cache:     cache,
		validator: validate,
		logger:    logger,
		policy:    policy,
		metrics:   metrics,
		now:       time.Now,
	}
}

// SubmitTest records a mood entry for the acting student. Students may
// only submit for themselves, within their own class, and at most once
// per local calendar day per class.
func (s *MoodService) SubmitTest(ctx context.Context, principal models.Principal, req dto.SubmitMoodRequest) (*dto.SubmitMoodResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mood submission payload")
	}

	student, err := RequireStudent(principal)
	if err != nil {
		return nil, err
	}
	if err := RequireSelf(student.ID, req.UserID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only submit your own mood")
	}
	if err := s.access.RequireSameClass(ctx, req.UserID, req.ClassID); err != nil {
		return nil, err
	}

	score := 0
	for _, answer := range req.Answers {
		score += answer
	}
	mood := s.policy.ScoreToMood(score)

	unlock := s.submitLocks.Lock(req.UserID + "|" + req.ClassID)
	defer unlock()

	now := s.now()
	exists, err := s.repo.ExistsForDay(ctx, req.UserID, req.ClassID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check daily submission")
	}
	if exists {
		return nil, appErrors.ErrDuplicateSubmission
	}

	entry := &models.MoodEntry{
		UserID:    req.UserID,
		ClassID:   req.ClassID,
		Score:     score,
		Mood:      mood,
		Timestamp: now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, appErrors.ErrDuplicateSubmission
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store mood entry")
	}

	if s.cache != nil {
		s.cache.InvalidateClass(ctx, req.ClassID)
	}
	if s.metrics != nil {
		s.metrics.RecordMoodSubmission(mood)
	}
	s.logger.Info("mood entry recorded",
		zap.String("user_id", req.UserID),
		zap.String("class_id", req.ClassID),
		zap.String("mood", string(mood)),
	)

	return &dto.SubmitMoodResponse{EntryID: entry.ID, Score: score, Mood: mood}, nil
}

// History returns a user's mood entries ordered by timestamp. Students
// see only their own history; teachers only that of their own
// students. An empty history is reported as NotFound.
func (s *MoodService) History(ctx context.Context, principal models.Principal, userID string, ascending bool) ([]dto.HistoryPoint, error) {
	switch p := principal.(type) {
	case models.Student:
		if err := RequireSelf(p.ID, userID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only view your own mood history")
		}
	case models.Teacher:
		if err := s.access.RequireStudentFromTeacher(ctx, p.ID, userID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	entries, err := s.repo.ListByUser(ctx, userID, ascending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mood history")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no mood history for this user")
	}

	points := make([]dto.HistoryPoint, 0, len(entries))
	for _, entry := range entries {
		points = append(points, dto.HistoryPoint{
			Timestamp: entry.Timestamp,
			Score:     entry.Score,
			Mood:      entry.Mood,
		})
	}
	return points, nil
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the mutex for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
