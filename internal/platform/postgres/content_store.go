package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/pathwise/internal/domain"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/store"
)

// PostgresContentStore implements the store.ContentStore interface
// over the content_nodes table owned by content authoring.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentStore creates a new PostgreSQL implementation of the ContentStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Ensure PostgresContentStore implements store.ContentStore interface
var _ store.ContentStore = (*PostgresContentStore)(nil)

// GetNode implements store.ContentStore.GetNode
func (s *PostgresContentStore) GetNode(ctx context.Context, id int64) (*domain.ContentNode, error) {
	query := `SELECT ` + contentColumns + ` FROM content_nodes WHERE id = $1`

	node, err := scanContentNode(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, s.mapReadError(ctx, err, "get_node", slog.Int64("node_id", id))
	}
	return node, nil
}

// GetChild implements store.ContentStore.GetChild
func (s *PostgresContentStore) GetChild(
	ctx context.Context,
	parentID int64,
	ordinal int,
) (*domain.ContentNode, error) {
	query := `SELECT ` + contentColumns + `
		FROM content_nodes
		WHERE parent_id = $1 AND ordinal_position = $2`

	node, err := scanContentNode(s.db.QueryRowContext(ctx, query, parentID, ordinal))
	if err != nil {
		return nil, s.mapReadError(ctx, err, "get_child",
			slog.Int64("parent_id", parentID),
			slog.Int("ordinal", ordinal))
	}
	return node, nil
}

// ListChildren implements store.ContentStore.ListChildren
func (s *PostgresContentStore) ListChildren(ctx context.Context, parentID int64) ([]*domain.ContentNode, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + contentColumns + `
		FROM content_nodes
		WHERE parent_id = $1
		ORDER BY ordinal_position ASC`

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		log.Error("failed to list content children",
			slog.String("error", err.Error()),
			slog.Int64("parent_id", parentID))
		return nil, store.NewStoreError("content_node", "list_children", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var nodes []*domain.ContentNode
	for rows.Next() {
		node, err := scanContentNode(rows)
		if err != nil {
			return nil, store.NewStoreError("content_node", "list_children", "scan failed", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("content_node", "list_children", "iteration failed", MapError(err))
	}
	return nodes, nil
}

func (s *PostgresContentStore) mapReadError(ctx context.Context, err error, op string, attrs ...any) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("content node not found", attrs...)
		return fmt.Errorf("%w: %s", store.ErrContentNotFound, op)
	}
	log.Error("failed to read content node", append(attrs, slog.String("error", err.Error()))...)
	return store.NewStoreError("content_node", op, "query failed", MapError(err))
}
