package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpulse/classpulse-api/internal/models"
)

// UserRepository manages persistence for user records.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, username, password_hash, teacher_id, class_id, created_at, updated_at
FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername fetches a user by its unique username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT id, username, password_hash, teacher_id, class_id, created_at, updated_at
FROM users WHERE username = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByUsername checks whether a username is already taken.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE username = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, username); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check username: %w", err)
	}
	return true, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, username, password_hash, teacher_id, class_id, created_at, updated_at)
VALUES (:id, :username, :password_hash, :teacher_id, :class_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ListByTeacher returns the students owned by a teacher.
func (r *UserRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.User, error) {
	const query = `SELECT id, username, password_hash, teacher_id, class_id, created_at, updated_at
FROM users WHERE teacher_id = $1 ORDER BY username ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, teacherID); err != nil {
		return nil, fmt.Errorf("list students by teacher: %w", err)
	}
	return users, nil
}

// ListByClass returns the students assigned to a class.
func (r *UserRepository) ListByClass(ctx context.Context, classID string) ([]models.User, error) {
	const query = `SELECT id, username, password_hash, teacher_id, class_id, created_at, updated_at
FROM users WHERE class_id = $1 ORDER BY username ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return users, nil
}

// TeacherOwnsClass reports whether at least one student links the
// teacher to the class. An empty class is indistinguishable from a
// class the teacher does not own.
func (r *UserRepository) TeacherOwnsClass(ctx context.Context, teacherID, classID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE teacher_id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class ownership: %w", err)
	}
	return true, nil
}

// StudentBelongsToTeacher reports whether the student row exists with
// the matching owning teacher.
func (r *UserRepository) StudentBelongsToTeacher(ctx context.Context, teacherID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE id = $1 AND teacher_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student ownership: %w", err)
	}
	return true, nil
}

// UserInClass reports whether the user's stored class matches.
func (r *UserRepository) UserInClass(ctx context.Context, userID, classID string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE id = $1 AND class_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class membership: %w", err)
	}
	return true, nil
}
