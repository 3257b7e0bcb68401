package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/classpulse-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestMoodRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMoodRepository(db)

	ts := time.Date(2026, 3, 9, 10, 30, 0, 0, time.Local)
	mock.ExpectExec("INSERT INTO mood_entries").
		WithArgs(sqlmock.AnyArg(), "s1", "c1", 19, string(models.MoodCurious), ts, "2026-03-09").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.MoodEntry{UserID: "s1", ClassID: "c1", Score: 19, Mood: models.MoodCurious, Timestamp: ts}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoodRepositoryCreateDuplicateDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMoodRepository(db)

	mock.ExpectExec("INSERT INTO mood_entries").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_mood_entries_daily"})

	err := repo.Create(context.Background(), &models.MoodEntry{
		UserID: "s1", ClassID: "c1", Score: 10, Mood: models.MoodDistracted, Timestamp: time.Now(),
	})
	assert.ErrorIs(t, err, ErrDuplicateEntry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoodRepositoryExistsForDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMoodRepository(db)

	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM mood_entries WHERE user_id = $1 AND class_id = $2 AND entry_day = $3 LIMIT 1")).
		WithArgs("s1", "c1", "2026-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsForDay(context.Background(), "s1", "c1", day)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM mood_entries").
		WithArgs("s1", "c1", "2026-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsForDay(context.Background(), "s1", "c1", day)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoodRepositoryListByUserOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMoodRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "class_id", "score", "mood", "timestamp"}).
		AddRow("e1", "s1", "c1", 10, "DISTRACTED", time.Now())

	mock.ExpectQuery("SELECT id, user_id, class_id, score, mood, timestamp FROM mood_entries WHERE user_id = \\$1 ORDER BY timestamp ASC").
		WithArgs("s1").
		WillReturnRows(rows)

	entries, err := repo.ListByUser(context.Background(), "s1", true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.MoodDistracted, entries[0].Mood)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoodRepositoryListByUserIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMoodRepository(db)

	entries, err := repo.ListByUserIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
