package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/pathwise/internal/store"
)

// NewStores builds every PostgreSQL store over the same connection or transaction.
func NewStores(db store.DBTX, logger *slog.Logger) store.Stores {
	return store.Stores{
		Content:    NewPostgresContentStore(db, logger),
		Progress:   NewPostgresProgressStore(db, logger),
		Hearts:     NewPostgresHeartsStore(db, logger),
		Reviews:    NewPostgresReviewStore(db, logger),
		Struggling: NewPostgresStrugglingStore(db, logger),
		Activity:   NewPostgresActivityStore(db, logger),
		XP:         NewPostgresXPStore(db, logger),
		Sessions:   NewPostgresSessionStore(db, logger),
	}
}

// Transactor implements store.Transactor on a *sql.DB connection pool.
type Transactor struct {
	db     *sql.DB
	logger *slog.Logger
	pooled store.Stores
}

// NewTransactor creates a Transactor. If logger is nil, a default logger will be used.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transactor{
		db:     db,
		logger: logger,
		pooled: NewStores(db, logger),
	}
}

// Ensure Transactor implements store.Transactor interface
var _ store.Transactor = (*Transactor)(nil)

// Stores implements store.Transactor.Stores
func (t *Transactor) Stores() store.Stores {
	return t.pooled
}

// RunInTx implements store.Transactor.RunInTx
func (t *Transactor) RunInTx(ctx context.Context, fn store.StoresFn) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, NewStores(tx, t.logger))
	})
}

// DB returns the underlying connection pool.
func (t *Transactor) DB() *sql.DB {
	return t.db
}
