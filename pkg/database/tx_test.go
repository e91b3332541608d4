package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observerStub struct {
	labels []string
}

func (o *observerStub) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func newRunnerMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRunnerCommitsOnSuccess(t *testing.T) {
	db, mock, cleanup := newRunnerMock(t)
	defer cleanup()
	observer := &observerStub{}
	runner := NewRunner(db, time.Second, observer)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE inventory_requests")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := runner.InTx(context.Background(), "approve", func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE inventory_requests SET status = 'Approved'")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"approve"}, observer.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRunnerMock(t)
	defer cleanup()
	runner := NewRunner(db, 0, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := runner.InTx(context.Background(), "reject", func(ctx context.Context, tx *sqlx.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerRollsBackOnPanic(t *testing.T) {
	db, mock, cleanup := newRunnerMock(t)
	defer cleanup()
	runner := NewRunner(db, 0, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	require.Panics(t, func() {
		_ = runner.InTx(context.Background(), "panic", func(ctx context.Context, tx *sqlx.Tx) error {
			panic("unexpected")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunnerBeginFailure(t *testing.T) {
	db, mock, cleanup := newRunnerMock(t)
	defer cleanup()
	runner := NewRunner(db, 0, nil)

	mock.ExpectBegin().WillReturnError(&pq.Error{Code: "53300"})

	called := false
	err := runner.InTx(context.Background(), "approve", func(ctx context.Context, tx *sqlx.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("syntax error")))
	assert.False(t, IsRetryable(sql.ErrNoRows))
	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(sql.ErrConnDone))
	assert.True(t, IsRetryable(driver.ErrBadConn))
	assert.True(t, IsRetryable(&pq.Error{Code: "08006"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
}
