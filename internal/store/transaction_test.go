package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestRunInTransaction_Success(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_FunctionError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	expectedErr := errors.New("function failed")
	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return expectedErr
	})

	assert.Equal(t, expectedErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_SentinelPassesThrough(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return NewStoreError("hearts_state", "update", "version moved", ErrConflict)
	})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrTransactionFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_BeginTransactionError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("begin transaction failed"))

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, err.Error(), "begin transaction failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_CommitError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.Contains(t, err.Error(), "commit failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollbackError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	functionErr := errors.New("function failed")
	mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

	err := RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		return functionErr
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error rolling back transaction")
	assert.Contains(t, err.Error(), "rollback failed")
	assert.ErrorIs(t, err, functionErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_Panic(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("test panic")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_PanicWithRollbackError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("rollback failed"))

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
			panic("test panic")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
