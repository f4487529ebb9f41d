// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the engine's services, allowing business rules to remain independent of
// specific database technologies or persistence details.
//
// Services never open transactions themselves; they ask a Transactor for a
// Stores bundle bound to one transaction.
package store
