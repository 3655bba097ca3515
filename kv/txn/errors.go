package txn

import (
	"fmt"

	"github.com/pingcap/errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent from the resolved view.
	ErrNotFound = errors.New("key not found")
	// ErrNoActiveTransaction is returned by Commit and Rollback on an empty frame stack.
	ErrNoActiveTransaction = errors.New("no active transaction")
	// ErrStoreClosed is the cause of persistence failures after Close.
	ErrStoreClosed = errors.New("store closed")
)

// ErrPersistence reports that the persistence bridge failed after an in-memory
// mutation had already been applied. The mutation is kept; callers treat this
// as a warning and may retry with Flush.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persist after %s: %v", e.Op, e.Err)
}

// Cause lets errors.Cause reach the storage error.
func (e *ErrPersistence) Cause() error {
	return e.Err
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// IsNoActiveTransaction reports whether err is ErrNoActiveTransaction.
func IsNoActiveTransaction(err error) bool {
	return errors.Cause(err) == ErrNoActiveTransaction
}

// IsPersistenceFailure reports whether err, or any error it annotates, is a
// persistence warning.
func IsPersistenceFailure(err error) bool {
	return errors.Find(err, func(e error) bool {
		_, ok := e.(*ErrPersistence)
		return ok
	}) != nil
}
