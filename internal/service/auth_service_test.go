package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/classpulse/classpulse-api/internal/models"
	"github.com/classpulse/classpulse-api/pkg/config"
	appErrors "github.com/classpulse/classpulse-api/pkg/errors"
)

type mockUserStore struct {
	users map[string]*models.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: map[string]*models.User{}}
}

func (m *mockUserStore) add(user models.User) {
	m.users[user.ID] = &user
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *user
	return &cp, nil
}

func (m *mockUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "u-" + user.Username
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if user, ok := m.users[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockUserStore) ListByTeacher(ctx context.Context, teacherID string) ([]models.User, error) {
	var out []models.User
	for _, user := range m.users {
		if user.TeacherID != nil && *user.TeacherID == teacherID {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (m *mockUserStore) ListByClass(ctx context.Context, classID string) ([]models.User, error) {
	var out []models.User
	for _, user := range m.users {
		if user.ClassID != nil && *user.ClassID == classID {
			out = append(out, *user)
		}
	}
	return out, nil
}

func (m *mockUserStore) TeacherOwnsClass(ctx context.Context, teacherID, classID string) (bool, error) {
	for _, user := range m.users {
		if user.TeacherID != nil && *user.TeacherID == teacherID &&
			user.ClassID != nil && *user.ClassID == classID {
			return true, nil
		}
	}
	return false, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "classpulse-test"}
}

func strPtr(s string) *string { return &s }

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterTeacherAndStudent(t *testing.T) {
	store := newMockUserStore()
	svc := NewAuthService(store, nil, testJWTConfig())

	teacher, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "teacher1", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, teacher.Role)

	student, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "student1", Password: "secret1",
		TeacherID: &teacher.ID, ClassID: strPtr("c1"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, student.Role)
	require.NotNil(t, student.TeacherID)
	assert.Equal(t, teacher.ID, *student.TeacherID)
}

func TestRegisterRejectsPartialStudentLinks(t *testing.T) {
	svc := NewAuthService(newMockUserStore(), nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "half", Password: "secret1", TeacherID: strPtr("t1"),
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Username: "half2", Password: "secret1", ClassID: strPtr("c1"),
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsBadTeacherLink(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{ID: "s9", Username: "someone", TeacherID: strPtr("t1"), ClassID: strPtr("c1")})
	svc := NewAuthService(store, nil, testJWTConfig())

	// Unknown teacher id.
	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "new", Password: "secret1", TeacherID: strPtr("missing"), ClassID: strPtr("c1"),
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Teacher id that points at a student row.
	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Username: "new2", Password: "secret1", TeacherID: strPtr("s9"), ClassID: strPtr("c1"),
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{ID: "t1", Username: "taken"})
	svc := NewAuthService(store, nil, testJWTConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "taken", Password: "secret1"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{
		ID: "s1", Username: "alice", PasswordHash: hashOf(t, "secret1"),
		TeacherID: strPtr("t1"), ClassID: strPtr("c1"),
	})
	svc := NewAuthService(store, nil, testJWTConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, res.User.Role)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)

	principal, ok := claims.Principal()
	require.True(t, ok)
	student, ok := principal.(models.Student)
	require.True(t, ok)
	assert.Equal(t, "s1", student.ID)
	assert.Equal(t, "t1", student.TeacherID)
	assert.Equal(t, "c1", student.ClassID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{ID: "t1", Username: "bob", PasswordHash: hashOf(t, "right")})
	svc := NewAuthService(store, nil, testJWTConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "bob", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "x"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{ID: "t1", Username: "bob", PasswordHash: hashOf(t, "secret1")})
	svc := NewAuthService(store, nil, testJWTConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	other := NewAuthService(store, nil, config.JWTConfig{Secret: "different", Expiration: time.Hour})
	_, err = other.ValidateToken(res.AccessToken)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{ID: "t1", Username: "bob", PasswordHash: hashOf(t, "old-pass")})
	svc := NewAuthService(store, nil, testJWTConfig())

	err := svc.ChangePassword(context.Background(), models.Teacher{ID: "t1"}, models.ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "new-pass",
	})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(context.Background(), models.Teacher{ID: "t1"}, models.ChangePasswordRequest{
		OldPassword: "old-pass", NewPassword: "new-pass",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "bob", Password: "new-pass"})
	assert.NoError(t, err)
}

func TestRosterScoping(t *testing.T) {
	store := newMockUserStore()
	store.add(models.User{ID: "s1", Username: "alice", TeacherID: strPtr("t1"), ClassID: strPtr("c1")})
	store.add(models.User{ID: "s2", Username: "bob", TeacherID: strPtr("t1"), ClassID: strPtr("c2")})
	store.add(models.User{ID: "s3", Username: "carol", TeacherID: strPtr("t2"), ClassID: strPtr("c3")})
	svc := NewAuthService(store, nil, testJWTConfig())

	all, err := svc.Roster(context.Background(), models.Teacher{ID: "t1"}, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	classOnly, err := svc.Roster(context.Background(), models.Teacher{ID: "t1"}, "c1")
	require.NoError(t, err)
	require.Len(t, classOnly, 1)
	assert.Equal(t, "alice", classOnly[0].Username)

	_, err = svc.Roster(context.Background(), models.Teacher{ID: "t1"}, "c3")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Roster(context.Background(), models.Student{ID: "s1", TeacherID: "t1", ClassID: "c1"}, "")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
