package drive

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned when a remote operation is attempted without
	// a usable bearer token. No request is sent in that case.
	ErrAuthRequired = errors.New("authentication required: no access token")

	// ErrRemoteOperationFailed matches every RemoteError via errors.Is.
	ErrRemoteOperationFailed = errors.New("remote operation failed")
)

// RemoteError represents a non-success response from the backup service.
// Message carries the service's own error message verbatim when one was sent.
type RemoteError struct {
	Operation  string // e.g., "FindAppFolder", "UploadFile"
	StatusCode int    // HTTP status code (0 if the request never got a response)
	Message    string
	FileID     string // Optional: affected file or folder id
	Err        error  // Optional: underlying error
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is reports RemoteError as a kind of ErrRemoteOperationFailed.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteOperationFailed
}

// IsNotFound returns true if the error is a 404 Not Found
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized returns true if the error is a 401 Unauthorized or 403 Forbidden
func (e *RemoteError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// NewRemoteError creates a new RemoteError
func NewRemoteError(operation string, statusCode int, message string) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

// WithFileID adds the affected file id to the error for context
func (e *RemoteError) WithFileID(id string) *RemoteError {
	e.FileID = id
	return e
}

// WithError wraps an underlying error
func (e *RemoteError) WithError(err error) *RemoteError {
	e.Err = err
	return e
}
