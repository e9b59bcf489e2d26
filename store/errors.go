package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record key does not exist in a collection.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownCollection is returned when an operation names a collection
	// that no schema version declares.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrInvalidDocument is returned when a record is not a JSON object or
	// carries a key of the wrong type.
	ErrInvalidDocument = errors.New("invalid document")
)

// StoreError represents errors specific to local store operations
type StoreError struct {
	Op         string // Operation that failed
	Collection string // Optional: collection name if relevant
	Key        any    // Optional: record key if relevant
	Err        error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Collection != "" && e.Key != nil {
		return fmt.Sprintf("store %s failed for %s[%v]: %v", e.Op, e.Collection, e.Key, e.Err)
	} else if e.Collection != "" {
		return fmt.Sprintf("store %s failed for %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
