package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for storage operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownBackend indicates Options.Backend names no known backend.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrQuotaExceeded indicates the backend refused a write because it is
	// out of space or the value is larger than it accepts.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("storage closed")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the appropriate
// sentinel error if it's a known query error type. Returns the original error
// if it's not a QueryError or doesn't match known patterns.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
		if strings.Contains(msg, "too large") {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, msg)
		}
	}

	return err
}
