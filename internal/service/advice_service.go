package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpulse/classpulse-api/internal/dto"
	"github.com/classpulse/classpulse-api/internal/models"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
)

type latestMoodStore interface {
	LatestByUser(ctx context.Context, userID string) (*models.MoodEntry, error)
	LatestByUserAndClass(ctx context.Context, userID, classID string) (*models.MoodEntry, error)
}

// AdviceService turns a user's latest mood into a personal suggestion
// or a presentation template plan.
type AdviceService struct {
	moods     latestMoodStore
	access    accessChecker
	validator *validator.Validate
	logger    *zap.Logger
	policy    ScoringPolicy
}

// NewAdviceService constructs an AdviceService.
func NewAdviceService(moods latestMoodStore, access accessChecker, logger *zap.Logger, policy ScoringPolicy) *AdviceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(policy.Bands) == 0 {
		policy = DefaultScoringPolicy()
	}
	return &AdviceService{
		moods:     moods,
		access:    access,
		validator: validator.New(),
		logger:    logger,
		policy:    policy,
	}
}

// MoodSuggestion returns the canned suggestion for the user's most
// recent mood. Students read their own; teachers read their students'.
func (s *AdviceService) MoodSuggestion(ctx context.Context, principal models.Principal, userID string) (*dto.MoodSuggestionResponse, error) {
	switch p := principal.(type) {
	case models.Student:
		if err := RequireSelf(p.ID, userID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only view your own suggestion")
		}
	case models.Teacher:
		if err := s.access.RequireStudentFromTeacher(ctx, p.ID, userID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	latest, err := s.moods.LatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no mood entry found for this user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest mood")
	}

	suggestion, ok := s.policy.Suggestions[latest.Mood]
	if !ok {
		suggestion = s.policy.DefaultSuggestion
	}
	return &dto.MoodSuggestionResponse{
		UserID:     userID,
		Mood:       latest.Mood,
		Suggestion: suggestion,
	}, nil
}

// TemplateAdvice recommends a presentation plan from the student's most
// recent entry in the given class. Teachers must own the class and the
// student; students may only ask about themselves in their own class.
func (s *AdviceService) TemplateAdvice(ctx context.Context, principal models.Principal, req dto.TemplateAdviceRequest) (*dto.TemplateAdviceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template advice payload")
	}

	switch p := principal.(type) {
	case models.Student:
		if err := RequireSelf(p.ID, req.UserID); err != nil {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only request advice for yourself")
		}
		if err := s.access.RequireSameClass(ctx, req.UserID, req.ClassID); err != nil {
			return nil, err
		}
	case models.Teacher:
		if err := s.access.RequireTeacherOwnsClass(ctx, p.ID, req.ClassID); err != nil {
			return nil, err
		}
		if err := s.access.RequireStudentFromTeacher(ctx, p.ID, req.UserID); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.ErrForbidden
	}

	latest, err := s.moods.LatestByUserAndClass(ctx, req.UserID, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no mood entry found for this user in this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load latest mood")
	}

	plan, ok := s.policy.TemplateAdvice[latest.Mood]
	if !ok {
		plan = s.policy.TemplateAdvice[s.policy.DefaultMood]
	}
	return &dto.TemplateAdviceResponse{
		UserID: req.UserID,
		Mood:   latest.Mood,
		Recommendation: dto.TemplateAdvice{
			Template: plan.Template,
			Sections: plan.Sections,
			Note:     plan.Note,
		},
	}, nil
}
