package sqlbase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const uniqueViolation = "23505"

var (
	// ErrPoolExhausted indicates no connection could be acquired within the acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrConnectionFailure indicates the database could not be reached.
	ErrConnectionFailure = errors.New("database connection failure")

	// ErrClosed indicates the executor was closed.
	ErrClosed = errors.New("executor closed")

	// ErrInvalidConfig indicates the executor configuration is unusable.
	ErrInvalidConfig = errors.New("invalid store configuration")
)

// TransactionError reports a failed transaction. Err is the failure that caused the
// rollback; RollbackErr is set when the rollback itself failed as well.
type TransactionError struct {
	Op          string // begin, step, commit or rollback
	Step        int    // index of the failing step, -1 when not applicable
	Err         error
	RollbackErr error
}

func (e *TransactionError) Error() string {
	msg := fmt.Sprintf("transaction %s failed", e.Op)
	if e.Step >= 0 {
		msg = fmt.Sprintf("transaction step %d failed", e.Step)
	}

	if e.RollbackErr != nil {
		return fmt.Sprintf("%s: %v (rollback failed: %v)", msg, e.Err, e.RollbackErr)
	}

	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether the error is an infrastructure condition a caller may retry.
func IsTransient(err error) bool {
	return errors.Is(err, ErrPoolExhausted) || errors.Is(err, ErrConnectionFailure)
}

// IsTransactionError reports whether the error came from a failed transaction.
func IsTransactionError(err error) bool {
	var txErr *TransactionError

	return errors.As(err, &txErr)
}

// IsUniqueViolation reports whether a driver error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
		}
	}

	return false
}
