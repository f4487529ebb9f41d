// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package, together with the
// embedded goose migrations that create their schema.
//
// Every store accepts a store.DBTX so the same code runs against the
// connection pool or inside a transaction opened by Transactor.RunInTx.
package postgres
