package postgres

import (
	"database/sql"

	"github.com/phrazzld/pathwise/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const contentColumns = `id, parent_id, kind, ordinal_position, title, xp_reward, published`

func scanContentNode(row rowScanner) (*domain.ContentNode, error) {
	var (
		node     domain.ContentNode
		parentID sql.NullInt64
	)
	if err := row.Scan(
		&node.ID,
		&parentID,
		&node.Kind,
		&node.Ordinal,
		&node.Title,
		&node.XPReward,
		&node.Published,
	); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		node.ParentID = &id
	}
	return &node, nil
}

const reviewColumns = `id, user_id, flashcard_id, review_mode, is_correct,
	review_date, next_review_date, interval_days, time_spent_seconds`

func scanReviewRecord(row rowScanner) (*domain.ReviewRecord, error) {
	var (
		r         domain.ReviewRecord
		timeSpent sql.NullInt32
	)
	if err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.FlashcardID,
		&r.ReviewMode,
		&r.IsCorrect,
		&r.ReviewDate,
		&r.NextReviewDate,
		&r.IntervalDays,
		&timeSpent,
	); err != nil {
		return nil, err
	}
	if timeSpent.Valid {
		v := int(timeSpent.Int32)
		r.TimeSpentSeconds = &v
	}
	r.ReviewDate = r.ReviewDate.UTC()
	r.NextReviewDate = r.NextReviewDate.UTC()
	return &r, nil
}

const strugglingColumns = `user_id, flashcard_id, times_failed, last_failed_at, added_at`

func scanStrugglingEntry(row rowScanner) (*domain.StrugglingEntry, error) {
	var e domain.StrugglingEntry
	if err := row.Scan(&e.UserID, &e.FlashcardID, &e.TimesFailed, &e.LastFailedAt, &e.AddedAt); err != nil {
		return nil, err
	}
	e.LastFailedAt = e.LastFailedAt.UTC()
	e.AddedAt = e.AddedAt.UTC()
	return &e, nil
}

func nullableInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
