package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classpulse/classpulse-api/internal/models"
)

// ErrDuplicateEntry signals the (user, class, day) uniqueness
// constraint rejected an insert.
var ErrDuplicateEntry = errors.New("mood entry already exists for this day")

const pqUniqueViolation = "23505"

// MoodRepository persists immutable mood entries.
type MoodRepository struct {
	db *sqlx.DB
}

// NewMoodRepository constructs a MoodRepository.
func NewMoodRepository(db *sqlx.DB) *MoodRepository {
	return &MoodRepository{db: db}
}

// Create inserts a mood entry. The entry day is derived from the
// timestamp at the server-local day boundary; a clash with the daily
// unique index surfaces as ErrDuplicateEntry so the caller can report
// a duplicate submission instead of a generic failure.
func (r *MoodRepository) Create(ctx context.Context, entry *models.MoodEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entryDay := entry.Timestamp.Local().Format("2006-01-02")

	const query = `INSERT INTO mood_entries (id, user_id, class_id, score, mood, timestamp, entry_day)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, entry.ID, entry.UserID, entry.ClassID, entry.Score, entry.Mood, entry.Timestamp, entryDay); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("create mood entry: %w", err)
	}
	return nil
}

// ExistsForDay checks for an entry on the given local calendar day.
func (r *MoodRepository) ExistsForDay(ctx context.Context, userID, classID string, day time.Time) (bool, error) {
	const query = `SELECT 1 FROM mood_entries WHERE user_id = $1 AND class_id = $2 AND entry_day = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, classID, day.Local().Format("2006-01-02")); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check daily entry: %w", err)
	}
	return true, nil
}

// ListByUser returns a user's full history ordered by timestamp.
func (r *MoodRepository) ListByUser(ctx context.Context, userID string, ascending bool) ([]models.MoodEntry, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	query := fmt.Sprintf(`SELECT id, user_id, class_id, score, mood, timestamp
FROM mood_entries WHERE user_id = $1 ORDER BY timestamp %s`, order)
	var entries []models.MoodEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("list mood entries by user: %w", err)
	}
	return entries, nil
}

// ListByClass returns all entries scoped to a class.
func (r *MoodRepository) ListByClass(ctx context.Context, classID string) ([]models.MoodEntry, error) {
	const query = `SELECT id, user_id, class_id, score, mood, timestamp
FROM mood_entries WHERE class_id = $1 ORDER BY timestamp ASC`
	var entries []models.MoodEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list mood entries by class: %w", err)
	}
	return entries, nil
}

// ListByUserIDs returns all entries belonging to any of the given
// users. An empty id list short-circuits to an empty result.
func (r *MoodRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]models.MoodEntry, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, user_id, class_id, score, mood, timestamp
FROM mood_entries WHERE user_id IN (?) ORDER BY timestamp ASC`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("build user ids query: %w", err)
	}
	query = r.db.Rebind(query)
	var entries []models.MoodEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list mood entries by users: %w", err)
	}
	return entries, nil
}

// LatestByUser returns a user's most recent entry across classes.
func (r *MoodRepository) LatestByUser(ctx context.Context, userID string) (*models.MoodEntry, error) {
	const query = `SELECT id, user_id, class_id, score, mood, timestamp
FROM mood_entries WHERE user_id = $1 ORDER BY timestamp DESC LIMIT 1`
	var entry models.MoodEntry
	if err := r.db.GetContext(ctx, &entry, query, userID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// LatestByUserAndClass returns the most recent entry for a (user,
// class) pair.
func (r *MoodRepository) LatestByUserAndClass(ctx context.Context, userID, classID string) (*models.MoodEntry, error) {
	const query = `SELECT id, user_id, class_id, score, mood, timestamp
FROM mood_entries WHERE user_id = $1 AND class_id = $2 ORDER BY timestamp DESC LIMIT 1`
	var entry models.MoodEntry
	if err := r.db.GetContext(ctx, &entry, query, userID, classID); err != nil {
		return nil, err
	}
	return &entry, nil
}
