// Package sqlbase provides the pooled SQL executor and migrations shared by the SQL stores.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Step is one statement of a Transaction.
type Step struct {
	SQL  string
	Args []any
}

// Executor runs statements through a bounded connection pool. The pool is opened
// on first use; every operation holds one dedicated connection while it runs.
type Executor struct {
	config  Config
	dialect Dialect
	logger  *slog.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewExecutor validates the configuration. No connection is opened until the first statement.
func NewExecutor(logger *slog.Logger, config Config) (*Executor, error) {
	config = config.withDefaults()

	err := config.validate()
	if err != nil {
		return nil, err
	}

	dialect, _ := DialectFor(config.Driver)

	return &Executor{
		config:  config,
		dialect: dialect,
		logger:  logger.With("module", "sqlbase", "driver", config.Driver),
	}, nil
}

// Dialect returns the SQL dialect of the configured driver.
func (e *Executor) Dialect() Dialect {
	return e.dialect
}

func (e *Executor) pool(ctx context.Context) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}

	if e.db != nil {
		return e.db, nil
	}

	db, err := sql.Open(e.config.Driver, e.config.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}

	db.SetMaxOpenConns(e.config.MaxConns)
	db.SetMaxIdleConns(max(e.config.MinConns, 1))

	pingCtx, cancel := context.WithTimeout(ctx, e.config.ConnectTimeout)
	defer cancel()

	err = db.PingContext(pingCtx)
	if err != nil {
		_ = db.Close()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		acquireFailures.WithLabelValues("connection").Inc()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}

	e.logger.InfoContext(ctx, "Connection pool initialized",
		"max_conns", e.config.MaxConns,
		"min_conns", e.config.MinConns,
		"acquire_timeout", e.config.AcquireTimeout)

	e.db = db

	return db, nil
}

func (e *Executor) acquire(ctx context.Context) (*sql.Conn, error) {
	db, err := e.pool(ctx)
	if err != nil {
		return nil, err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, e.config.AcquireTimeout)
	defer cancel()

	conn, err := db.Conn(acquireCtx)
	if err == nil {
		return conn, nil
	}

	switch {
	case ctx.Err() != nil:
		acquireFailures.WithLabelValues("canceled").Inc()

		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		acquireFailures.WithLabelValues("exhausted").Inc()

		return nil, fmt.Errorf("%w: no connection available after %s", ErrPoolExhausted, e.config.AcquireTimeout)
	case errors.Is(err, sql.ErrConnDone):
		return nil, ErrClosed
	default:
		acquireFailures.WithLabelValues("connection").Inc()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}
}

// Ping acquires a connection and checks that the database answers.
func (e *Executor) Ping(ctx context.Context) error {
	conn, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	defer e.release(ctx, conn)

	err = conn.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailure, err)
	}

	return nil
}

// Query runs a statement that returns rows.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer e.release(ctx, conn)

	return e.query(ctx, conn, query, args)
}

// Exec runs a statement that does not return rows.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (*Rows, error) {
	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	defer e.release(ctx, conn)

	return e.exec(ctx, conn, query, args)
}

// Transaction runs the steps in order inside one transaction. Any failing step
// rolls the whole transaction back and no result is returned.
func (e *Executor) Transaction(ctx context.Context, steps []Step) ([]*Rows, error) {
	results := make([]*Rows, 0, len(steps))

	err := e.InTx(ctx, func(ctx context.Context, tx *Tx) error {
		for i, step := range steps {
			var (
				rows *Rows
				err  error
			)

			if returnsRows(step.SQL) {
				rows, err = tx.Query(ctx, step.SQL, step.Args...)
			} else {
				rows, err = tx.Exec(ctx, step.SQL, step.Args...)
			}

			if err != nil {
				return &TransactionError{Op: "step", Step: i, Err: err}
			}

			results = append(results, rows)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// InTx runs fn inside a transaction on a dedicated connection. The transaction
// commits when fn returns nil and rolls back otherwise. A failed rollback is
// logged and reported next to the error returned by fn, which stays the cause.
func (e *Executor) InTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	conn, err := e.acquire(ctx)
	if err != nil {
		return err
	}

	defer e.release(ctx, conn)

	start := time.Now()
	sqlTx, err := conn.BeginTx(ctx, nil)
	e.observe(ctx, "begin", "BEGIN", start, err)

	if err != nil {
		return &TransactionError{Op: "begin", Step: -1, Err: fmt.Errorf("%w: %w", ErrConnectionFailure, err)}
	}

	err = fn(ctx, &Tx{tx: sqlTx, executor: e})
	if err != nil {
		return e.rollback(ctx, sqlTx, err)
	}

	start = time.Now()
	err = sqlTx.Commit()
	e.observe(ctx, "commit", "COMMIT", start, err)

	if err != nil {
		return &TransactionError{Op: "commit", Step: -1, Err: err}
	}

	return nil
}

func (e *Executor) rollback(ctx context.Context, sqlTx *sql.Tx, cause error) error {
	start := time.Now()
	err := sqlTx.Rollback()
	e.observe(ctx, "rollback", "ROLLBACK", start, err)

	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return cause
	}

	e.logger.ErrorContext(ctx, "Failed to roll back transaction", "error", err, "cause", cause)

	var txErr *TransactionError
	if errors.As(cause, &txErr) {
		txErr.RollbackErr = err

		return txErr
	}

	return &TransactionError{Op: "rollback", Step: -1, Err: cause, RollbackErr: err}
}

// Close releases the pool. Closing more than once is a no-op.
func (e *Executor) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	if e.db == nil {
		return nil
	}

	err := e.db.Close()
	e.db = nil

	if err != nil {
		return fmt.Errorf("failed to close connection pool: %w", err)
	}

	e.logger.InfoContext(ctx, "Connection pool closed")

	return nil
}

// Stats returns the pool statistics, or zero values before the pool is opened.
func (e *Executor) Stats() sql.DBStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return sql.DBStats{}
	}

	return e.db.Stats()
}

func (e *Executor) release(ctx context.Context, conn *sql.Conn) {
	err := conn.Close()
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		e.logger.ErrorContext(ctx, "failed to release connection", "error", err)
	}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (e *Executor) query(ctx context.Context, q queryer, query string, args []any) (*Rows, error) {
	start := time.Now()

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		e.observe(ctx, "query", query, start, err)

		return nil, fmt.Errorf("query failed: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			e.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	result, err := collect(rows)
	result = withElapsed(result, e.observe(ctx, "query", query, start, err))

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Executor) exec(ctx context.Context, q queryer, query string, args []any) (*Rows, error) {
	start := time.Now()

	res, err := q.ExecContext(ctx, query, args...)
	elapsed := e.observe(ctx, "exec", query, start, err)

	if err != nil {
		return nil, fmt.Errorf("exec failed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		affected = -1
	}

	return &Rows{Records: []Row{}, RowsAffected: affected, Elapsed: elapsed}, nil
}

func (e *Executor) observe(ctx context.Context, operation, query string, start time.Time, err error) time.Duration {
	elapsed := time.Since(start)

	queryDuration.WithLabelValues(e.config.Driver, operation, statusLabel(err)).Observe(elapsed.Seconds())

	e.logger.DebugContext(ctx, "Statement executed",
		"operation", operation,
		"statement", compact(query),
		"elapsed", elapsed,
		"error", err)

	return elapsed
}

func withElapsed(rows *Rows, elapsed time.Duration) *Rows {
	if rows != nil {
		rows.Elapsed = elapsed
	}

	return rows
}

func returnsRows(query string) bool {
	statement := strings.ToUpper(compact(query))

	return strings.HasPrefix(statement, "SELECT") ||
		strings.HasPrefix(statement, "WITH") ||
		strings.Contains(statement+" ", " RETURNING ")
}

func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// Tx is a transaction in progress. It must not be used after the InTx callback returns.
type Tx struct {
	tx       *sql.Tx
	executor *Executor
}

// Query runs a statement that returns rows inside the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	return t.executor.query(ctx, t.tx, query, args)
}

// Exec runs a statement that does not return rows inside the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (*Rows, error) {
	return t.executor.exec(ctx, t.tx, query, args)
}

// Dialect returns the dialect of the executor the transaction belongs to.
func (t *Tx) Dialect() Dialect {
	return t.executor.dialect
}
