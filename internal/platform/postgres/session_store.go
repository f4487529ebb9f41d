package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// PostgresSessionStore implements the store.SessionStore interface
// over review_sessions and review_submissions.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// Create implements store.SessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.ReviewSession) error {
	query := `
		INSERT INTO review_sessions (id, user_id, mode, created_at)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.Mode, session.CreatedAt,
	); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create review session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return store.NewStoreError("review_session", "create", "insert failed", MapError(err))
	}
	return nil
}

// GetForUpdate implements store.SessionStore.GetForUpdate
func (s *PostgresSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ReviewSession, error) {
	query := `
		SELECT id, user_id, mode, created_at
		FROM review_sessions
		WHERE id = $1
		FOR UPDATE`

	var rs domain.ReviewSession
	err := s.db.QueryRowContext(ctx, query, id).Scan(&rs.ID, &rs.UserID, &rs.Mode, &rs.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load review session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, store.NewStoreError("review_session", "get_for_update", "query failed", MapError(err))
	}
	rs.CreatedAt = rs.CreatedAt.UTC()
	return &rs, nil
}

// GetSubmission implements store.SessionStore.GetSubmission
func (s *PostgresSessionStore) GetSubmission(
	ctx context.Context,
	sessionID uuid.UUID,
	flashcardID int64,
) (*domain.ReviewSubmission, error) {
	query := `
		SELECT session_id, flashcard_id, user_id, review_id, xp_awarded, hearts_debited, submitted_at
		FROM review_submissions
		WHERE session_id = $1 AND flashcard_id = $2`

	var sub domain.ReviewSubmission
	err := s.db.QueryRowContext(ctx, query, sessionID, flashcardID).Scan(
		&sub.SessionID,
		&sub.FlashcardID,
		&sub.UserID,
		&sub.ReviewID,
		&sub.XPAwarded,
		&sub.HeartsDebited,
		&sub.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSubmissionNotFound
		}
		return nil, store.NewStoreError("review_submission", "get", "query failed", MapError(err))
	}
	sub.SubmittedAt = sub.SubmittedAt.UTC()
	return &sub, nil
}

// CreateSubmission implements store.SessionStore.CreateSubmission
func (s *PostgresSessionStore) CreateSubmission(ctx context.Context, sub *domain.ReviewSubmission) error {
	query := `
		INSERT INTO review_submissions (
			session_id, flashcard_id, user_id, review_id, xp_awarded, hearts_debited, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		sub.SessionID,
		sub.FlashcardID,
		sub.UserID,
		sub.ReviewID,
		sub.XPAwarded,
		sub.HeartsDebited,
		sub.SubmittedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrSubmissionExists)
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record review submission",
			slog.String("error", err.Error()),
			slog.String("session_id", sub.SessionID.String()),
			slog.Int64("flashcard_id", sub.FlashcardID))
		return store.NewStoreError("review_submission", "create", "insert failed", MapError(err))
	}
	return nil
}
