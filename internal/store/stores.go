package store

import "context"

// Stores bundles every store bound to the same connection or transaction.
type Stores struct {
	Content    ContentStore
	Progress   ProgressStore
	Hearts     HeartsStore
	Reviews    ReviewStore
	Struggling StrugglingStore
	Activity   ActivityStore
	XP         XPStore
	Sessions   SessionStore
}

// StoresFn is a unit of work executed against transaction-bound stores.
type StoresFn func(ctx context.Context, tx Stores) error

// Transactor hands out Stores.
type Transactor interface {
	// Stores returns stores bound to the connection pool, for single reads.
	Stores() Stores

	// RunInTx executes fn with stores bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn StoresFn) error
}
