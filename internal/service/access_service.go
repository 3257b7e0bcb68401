package service

import (
	"context"

	"github.com/classpulse/classpulse-api/internal/models"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
)

type ownershipRepository interface {
	TeacherOwnsClass(ctx context.Context, teacherID, classID string) (bool, error)
	StudentBelongsToTeacher(ctx context.Context, teacherID, studentID string) (bool, error)
	UserInClass(ctx context.Context, userID, classID string) (bool, error)
}

// AccessService evaluates the hierarchical ownership predicates
// (teacher owns class owns student). Every gated operation composes
// one or two of these before touching data; a failing predicate maps
// to a generic Forbidden so callers cannot probe for existence.
type AccessService struct {
	repo ownershipRepository
}

// NewAccessService constructs an AccessService.
func NewAccessService(repo ownershipRepository) *AccessService {
	return &AccessService{repo: repo}
}

// RequireTeacherOwnsClass passes iff at least one student record links
// the teacher to the class. An empty class with no assigned students
// is indistinguishable from a class the teacher does not own.
func (s *AccessService) RequireTeacherOwnsClass(ctx context.Context, teacherID, classID string) error {
	ok, err := s.repo.TeacherOwnsClass(ctx, teacherID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class ownership")
	}
	if !ok {
		return appErrors.ErrForbidden
	}
	return nil
}

// RequireStudentFromTeacher passes iff the student's owning teacher
// matches.
func (s *AccessService) RequireStudentFromTeacher(ctx context.Context, teacherID, studentID string) error {
	ok, err := s.repo.StudentBelongsToTeacher(ctx, teacherID, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student ownership")
	}
	if !ok {
		return appErrors.ErrForbidden
	}
	return nil
}

// RequireSameClass passes iff the user's stored class matches the
// target class.
func (s *AccessService) RequireSameClass(ctx context.Context, userID, classID string) error {
	ok, err := s.repo.UserInClass(ctx, userID, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class membership")
	}
	if !ok {
		return appErrors.ErrForbidden
	}
	return nil
}

// RequireSelf is the strict-equality predicate used for submitting
// one's own mood or changing one's own password.
func RequireSelf(actingID, targetID string) error {
	if actingID != targetID {
		return appErrors.ErrForbidden
	}
	return nil
}

// RequireTeacher narrows a principal to the teacher variant.
func RequireTeacher(p models.Principal) (models.Teacher, error) {
	switch v := p.(type) {
	case models.Teacher:
		return v, nil
	case models.Student:
		return models.Teacher{}, appErrors.Clone(appErrors.ErrForbidden, "teachers only")
	default:
		return models.Teacher{}, appErrors.ErrForbidden
	}
}

// RequireStudent narrows a principal to the student variant.
func RequireStudent(p models.Principal) (models.Student, error) {
	switch v := p.(type) {
	case models.Student:
		return v, nil
	case models.Teacher:
		return models.Student{}, appErrors.Clone(appErrors.ErrForbidden, "students only")
	default:
		return models.Student{}, appErrors.ErrForbidden
	}
}
