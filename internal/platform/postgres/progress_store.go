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

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the ProgressStore interface.
func NewPostgresProgressStore(db store.DBTX, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProgressStore{
		db:     db,
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// Upsert implements store.ProgressStore.Upsert
// The score only ever rises; xmax = 0 identifies a freshly inserted row.
func (s *PostgresProgressStore) Upsert(
	ctx context.Context,
	record *domain.ProgressRecord,
) (*domain.ProgressRecord, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		return nil, false, store.NewStoreError("progress_record", "upsert", "invalid record",
			errors.Join(store.ErrInvalidEntity, err))
	}

	query := `
		INSERT INTO progress_records (user_id, node_id, node_kind, completed_at, score)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, node_id) DO UPDATE
		SET score = GREATEST(progress_records.score, EXCLUDED.score)
		RETURNING completed_at, score, (xmax = 0) AS inserted`

	stored := *record
	var created bool
	err := s.db.QueryRowContext(ctx, query,
		record.UserID,
		record.NodeID,
		record.NodeKind,
		record.CompletedAt,
		record.Score,
	).Scan(&stored.CompletedAt, &stored.Score, &created)
	if err != nil {
		log.Error("failed to upsert progress record",
			slog.String("error", err.Error()),
			slog.String("user_id", record.UserID.String()),
			slog.Int64("node_id", record.NodeID))
		return nil, false, store.NewStoreError("progress_record", "upsert", "query failed", MapError(err))
	}
	stored.CompletedAt = stored.CompletedAt.UTC()

	log.Debug("progress record upserted",
		slog.String("user_id", record.UserID.String()),
		slog.Int64("node_id", record.NodeID),
		slog.Bool("created", created),
		slog.Int("score", stored.Score))
	return &stored, created, nil
}

// Get implements store.ProgressStore.Get
func (s *PostgresProgressStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	nodeID int64,
) (*domain.ProgressRecord, error) {
	query := `
		SELECT user_id, node_id, node_kind, completed_at, score
		FROM progress_records
		WHERE user_id = $1 AND node_id = $2`

	var p domain.ProgressRecord
	err := s.db.QueryRowContext(ctx, query, userID, nodeID).
		Scan(&p.UserID, &p.NodeID, &p.NodeKind, &p.CompletedAt, &p.Score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get progress record",
			slog.String("error", err.Error()),
			slog.Int64("node_id", nodeID))
		return nil, store.NewStoreError("progress_record", "get", "query failed", MapError(err))
	}
	p.CompletedAt = p.CompletedAt.UTC()
	return &p, nil
}

// CountCompletedChildren implements store.ProgressStore.CountCompletedChildren
func (s *PostgresProgressStore) CountCompletedChildren(
	ctx context.Context,
	userID uuid.UUID,
	parentID int64,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM progress_records p
		JOIN content_nodes c ON c.id = p.node_id
		WHERE p.user_id = $1 AND c.parent_id = $2`

	var n int
	if err := s.db.QueryRowContext(ctx, query, userID, parentID).Scan(&n); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count completed children",
			slog.String("error", err.Error()),
			slog.Int64("parent_id", parentID))
		return 0, store.NewStoreError("progress_record", "count_children", "query failed", MapError(err))
	}
	return n, nil
}
