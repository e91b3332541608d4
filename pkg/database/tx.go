package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Beginner opens transactions; *sqlx.DB satisfies it.
type Beginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DurationObserver receives the wall time of each finished transaction.
type DurationObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// TxFunc is the unit of work executed inside a transaction.
type TxFunc func(ctx context.Context, tx *sqlx.Tx) error

// Runner executes units of work as all-or-nothing transactions.
type Runner struct {
	db       Beginner
	timeout  time.Duration
	observer DurationObserver
}

// NewRunner builds a Runner. A zero timeout leaves the caller's deadline untouched.
func NewRunner(db Beginner, timeout time.Duration, observer DurationObserver) *Runner {
	return &Runner{db: db, timeout: timeout, observer: observer}
}

// InTx acquires a pooled connection, runs fn and commits. Every path that does not
// reach a successful commit rolls back, including panics inside fn, and the
// connection returns to the pool once the transaction ends.
func (r *Runner) InTx(ctx context.Context, label string, fn TxFunc) (err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if r.observer != nil {
		start := time.Now()
		defer func() { r.observer.ObserveDBQuery(label, time.Since(start)) }()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", label, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", label, err)
	}
	committed = true
	return nil
}

// IsRetryable reports whether err is a transient store failure: pool or
// transaction timeouts, dropped connections, serialization conflicts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "53":
			return true
		case pqErr.Code == "40001", pqErr.Code == "40P01", pqErr.Code == "57014":
			return true
		}
	}
	return false
}
