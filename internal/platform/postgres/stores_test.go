package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestContentStore_GetNode(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresContentStore(db, nil)

	columns := []string{"id", "parent_id", "kind", "ordinal_position", "title", "xp_reward", "published"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM content_nodes WHERE id = $1")).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(12, 4, "lesson", 2, "Greetings", 30, true))

	node, err := s.GetNode(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, domain.NodeKindLesson, node.Kind)
	require.NotNil(t, node.ParentID)
	assert.Equal(t, int64(4), *node.ParentID)
	assert.Equal(t, 2, node.Ordinal)
	assert.Equal(t, 30, node.XPReward)

	mock.ExpectQuery(regexp.QuoteMeta("FROM content_nodes WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err = s.GetNode(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrContentNotFound)
}

func TestContentStore_DomainHasNoParent(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresContentStore(db, nil)

	columns := []string{"id", "parent_id", "kind", "ordinal_position", "title", "xp_reward", "published"}
	mock.ExpectQuery("FROM content_nodes").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(1, nil, "domain", 0, "Languages", 0, true))

	node, err := s.GetNode(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, node.ParentID)
	assert.False(t, node.HasParent())
}

func TestHeartsStore_UpdateVersionConflict(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresHeartsStore(db, nil)
	state := &domain.HeartsState{
		UserID:          uuid.New(),
		PathID:          3,
		HeartsRemaining: 2,
		MaxHearts:       5,
		LastRefillAt:    time.Now().UTC(),
		Version:         7,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE hearts_states")).
		WithArgs(state.UserID, state.PathID, 2, 5, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), state)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, int64(7), state.Version)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE hearts_states")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Update(context.Background(), state))
	assert.Equal(t, int64(8), state.Version)
}

func TestHeartsStore_GetForUpdateCreatesRow(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresHeartsStore(db, nil)
	userID := uuid.New()
	now := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hearts_states")).
		WithArgs(userID, int64(3), 5, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(userID, int64(3)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"user_id", "path_id", "hearts_remaining", "max_hearts", "last_refill_at", "version"},
		).AddRow(userID.String(), 3, 5, 5, now, 0))

	h, err := s.GetForUpdate(context.Background(), userID, 3, 5, now)
	require.NoError(t, err)
	assert.Equal(t, userID, h.UserID)
	assert.Equal(t, 5, h.HeartsRemaining)
	assert.True(t, h.LastRefillAt.Equal(now))
}

func TestProgressStore_Upsert(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresProgressStore(db, nil)
	firstAt := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := &domain.ProgressRecord{
		UserID:      uuid.New(),
		NodeID:      8,
		NodeKind:    domain.NodeKindLesson,
		CompletedAt: firstAt.Add(time.Hour),
		Score:       60,
	}

	mock.ExpectQuery(regexp.QuoteMeta("GREATEST(progress_records.score, EXCLUDED.score)")).
		WithArgs(rec.UserID, int64(8), "lesson", sqlmock.AnyArg(), 60).
		WillReturnRows(sqlmock.NewRows([]string{"completed_at", "score", "inserted"}).
			AddRow(firstAt, 90, false))

	stored, created, err := s.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 90, stored.Score)
	assert.True(t, stored.CompletedAt.Equal(firstAt))
	assert.Equal(t, 60, rec.Score, "input record must not be modified")
}

func TestProgressStore_UpsertRejectsInvalid(t *testing.T) {
	db, _ := newMock(t)
	s := NewPostgresProgressStore(db, nil)

	_, _, err := s.Upsert(context.Background(), &domain.ProgressRecord{
		UserID:   uuid.New(),
		NodeID:   8,
		NodeKind: domain.NodeKindFlashcard,
	})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestReviewStore_Due(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresReviewStore(db, nil)
	userID := uuid.New()
	now := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

	columns := []string{
		"id", "user_id", "flashcard_id", "review_mode", "is_correct",
		"review_date", "next_review_date", "interval_days", "time_spent_seconds",
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (flashcard_id)")).
		WithArgs(userID, now, 20).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(5, userID.String(), 40, "review", true, now.AddDate(0, 0, -6), now.AddDate(0, 0, -2), 4, 12).
			AddRow(9, userID.String(), 41, "flashcard", false, now.AddDate(0, 0, -2), now.AddDate(0, 0, -1), 1, nil))

	due, err := s.Due(context.Background(), userID, now, 20)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, int64(40), due[0].FlashcardID)
	require.NotNil(t, due[0].TimeSpentSeconds)
	assert.Equal(t, 12, *due[0].TimeSpentSeconds)
	assert.Nil(t, due[1].TimeSpentSeconds)
	assert.Equal(t, domain.ReviewModeFlashcard, due[1].ReviewMode)
}

func TestReviewStore_AppendSetsID(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresReviewStore(db, nil)
	now := time.Now().UTC()
	rec := &domain.ReviewRecord{
		UserID:         uuid.New(),
		FlashcardID:    40,
		ReviewMode:     domain.ReviewModeReview,
		IsCorrect:      true,
		ReviewDate:     now,
		NextReviewDate: now.AddDate(0, 0, 2),
		IntervalDays:   2,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO review_records")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))

	require.NoError(t, s.Append(context.Background(), rec))
	assert.Equal(t, int64(77), rec.ID)
}

func TestStrugglingStore_RemoveMissing(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresStrugglingStore(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM struggling_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Remove(context.Background(), uuid.New(), 4)
	assert.ErrorIs(t, err, store.ErrStrugglingNotFound)
}

func TestStrugglingStore_GetForUpdateLocksRow(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresStrugglingStore(db, nil)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM struggling_entries\s+WHERE user_id = \$1 AND flashcard_id = \$2 FOR UPDATE`).
		WithArgs(userID, int64(4)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"user_id", "flashcard_id", "times_failed", "last_failed_at", "added_at"},
		).AddRow(userID.String(), 4, 2, now, now.Add(-time.Hour)))

	e, err := s.GetForUpdate(context.Background(), userID, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, e.TimesFailed)

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(userID, int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err = s.GetForUpdate(context.Background(), userID, 5)
	assert.ErrorIs(t, err, store.ErrStrugglingNotFound)
}

func TestStrugglingStore_RecordFailureIncrements(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresStrugglingStore(db, nil)
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("times_failed = struggling_entries.times_failed + 1")).
		WithArgs(userID, int64(4), now).
		WillReturnRows(sqlmock.NewRows(
			[]string{"user_id", "flashcard_id", "times_failed", "last_failed_at", "added_at"},
		).AddRow(userID.String(), 4, 3, now, now.Add(-time.Hour)))

	e, err := s.RecordFailure(context.Background(), userID, 4, now)
	require.NoError(t, err)
	assert.Equal(t, 3, e.TimesFailed)
}

func TestSessionStore_CreateSubmissionDuplicate(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresSessionStore(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_submissions")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "review_submissions_pkey"})

	err := s.CreateSubmission(context.Background(), &domain.ReviewSubmission{
		SessionID:   uuid.New(),
		FlashcardID: 4,
		UserID:      uuid.New(),
		ReviewID:    1,
		SubmittedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, store.ErrSubmissionExists)
	assert.True(t, store.IsDuplicateError(err))
}

func TestSessionStore_GetForUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresSessionStore(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM review_sessions")).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetForUpdate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestXPStore(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresXPStore(db, nil)
	userID := uuid.New()

	err := s.Append(context.Background(), &domain.XPTransaction{UserID: userID, Amount: -1})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM xp_transactions")).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(125))

	total, err := s.Total(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 125, total)
}

func TestActivityStore_DaysNormalized(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresActivityStore(db, nil)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("AT TIME ZONE $2")).
		WithArgs(userID, "UTC").
		WillReturnRows(sqlmock.NewRows([]string{"day"}).
			AddRow(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)).
			AddRow(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

	days, err := s.ActivityDays(context.Background(), userID, nil)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, 2, domain.CurrentStreak(days, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestTransactor_RunInTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	tr := NewTransactor(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM struggling_entries")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := tr.RunInTx(context.Background(), func(ctx context.Context, tx store.Stores) error {
		return tx.Struggling.Remove(ctx, uuid.New(), 4)
	})
	assert.ErrorIs(t, err, store.ErrStrugglingNotFound)
}
