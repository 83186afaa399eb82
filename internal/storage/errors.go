package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a mutation targeted a record that does not exist.
// Reads signal absence with a nil record instead.
var ErrNotFound = errors.New("record not found")

// ConnectionError reports that the store could not be opened. Until a
// subsequent open succeeds, every dependent feature is unavailable.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("storage connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StorageError wraps any other underlying storage failure. Operations are
// not retried; the caller decides what to do.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
