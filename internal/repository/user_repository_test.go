package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse-api/internal/models"
)

func TestUserRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "teacher_id", "class_id", "created_at", "updated_at"}).
		AddRow("s1", "alice", "hash", "t1", "c1", time.Now(), time.Now())

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("alice").
		WillReturnRows(rows)

	user, err := repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role())
	require.NotNil(t, user.TeacherID)
	assert.Equal(t, "t1", *user.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Username: "teacher1", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryOwnershipPredicates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE teacher_id = $1 AND class_id = $2 LIMIT 1")).
		WithArgs("t1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	owns, err := repo.TeacherOwnsClass(context.Background(), "t1", "c1")
	require.NoError(t, err)
	assert.True(t, owns)

	// No linking student row: not owned, including the empty class case.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE teacher_id = $1 AND class_id = $2 LIMIT 1")).
		WithArgs("t1", "c9").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	owns, err = repo.TeacherOwnsClass(context.Background(), "t1", "c9")
	require.NoError(t, err)
	assert.False(t, owns)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE id = $1 AND teacher_id = $2 LIMIT 1")).
		WithArgs("s1", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	belongs, err := repo.StudentBelongsToTeacher(context.Background(), "t1", "s1")
	require.NoError(t, err)
	assert.True(t, belongs)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users WHERE id = $1 AND class_id = $2 LIMIT 1")).
		WithArgs("s1", "c2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	inClass, err := repo.UserInClass(context.Background(), "s1", "c2")
	require.NoError(t, err)
	assert.False(t, inClass)

	assert.NoError(t, mock.ExpectationsWereMet())
}
