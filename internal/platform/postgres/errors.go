package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/pathwise/internal/store"
)

// SQLSTATE codes the engine's tables can raise.
const (
	uniqueViolationCode      = "23505" // review_submissions, struggling and progress primary keys
	foreignKeyViolationCode  = "23503" // progress, hearts and reviews referencing content_nodes
	checkViolationCode       = "23514" // hearts bounds, score range, node kinds
	notNullViolationCode     = "23502"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01" // two answers locking the same hearts or struggling rows
)

// pgClass is how MapError reports one SQLSTATE.
type pgClass struct {
	sentinel error
	label    string
	detail   func(*pgconn.PgError) string
}

func constraintOf(e *pgconn.PgError) string { return e.ConstraintName }
func columnOf(e *pgconn.PgError) string     { return e.ColumnName }

var pgClasses = map[string]pgClass{
	uniqueViolationCode:      {sentinel: store.ErrDuplicate},
	foreignKeyViolationCode:  {sentinel: store.ErrInvalidEntity, label: "foreign key violation", detail: constraintOf},
	checkViolationCode:       {sentinel: store.ErrInvalidEntity, label: "check constraint violation", detail: constraintOf},
	notNullViolationCode:     {sentinel: store.ErrInvalidEntity, label: "not null violation", detail: columnOf},
	serializationFailureCode: {sentinel: store.ErrConflict},
	deadlockDetectedCode:     {sentinel: store.ErrConflict},
}

// MapError translates driver errors into store sentinels. Constraint
// failures become ErrInvalidEntity, lock contention ErrConflict and a
// missing row ErrNotFound; anything else is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	class, ok := pgClasses[pgErr.Code]
	if !ok {
		return err
	}
	if class.label == "" {
		return fmt.Errorf("%w: %v", class.sentinel, err)
	}
	return fmt.Errorf("%w: %s (%s): %v", class.sentinel, class.label, class.detail(pgErr), err)
}

// IsUniqueViolation reports whether err is a duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsNotFoundError reports whether err means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, store.ErrNotFound)
}

// CheckRowsAffected turns an UPDATE or DELETE that touched nothing into
// store.ErrNotFound. The versioned hearts update relies on it to detect a
// moved version.
func CheckRowsAffected(result sql.Result, entityName string) error {
	if result == nil {
		return errors.New("no result to check")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if entityName == "" {
		return store.ErrNotFound
	}
	return fmt.Errorf("%w: %s not found", store.ErrNotFound, entityName)
}

// MapUniqueViolation reports a duplicate key as target, e.g.
// store.ErrSubmissionExists for a card answered twice in one session.
// A nil target falls back to store.ErrDuplicate. Other errors pass through.
func MapUniqueViolation(err error, target error) error {
	if !IsUniqueViolation(err) {
		return err
	}
	if target == nil {
		target = store.ErrDuplicate
	}
	return fmt.Errorf("%w: %v", target, err)
}
