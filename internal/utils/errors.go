package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// Common error constructors with suggestions

// ErrClassNotFound creates an error when a class id does not exist
func ErrClassNotFound(classID int64) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("class %d not found", classID),
		Suggestion: "Run 'jurnalguru class list' to see available classes",
	}
}

// ErrStudentNotFound creates an error when a student id does not exist
func ErrStudentNotFound(studentID int64) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("student %d not found", studentID),
		Suggestion: "Run 'jurnalguru student list --class <id>' to see students",
	}
}

// ErrNotSignedIn creates an error when a remote operation needs a session
func ErrNotSignedIn(cause error) error {
	return &ErrorWithSuggestion{
		Err:        cause,
		Suggestion: "Sign in with 'jurnalguru auth login' and try again",
	}
}

// ErrSyncNotEnabled creates an error when sync operations are attempted but sync is disabled
func ErrSyncNotEnabled() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("sync is not enabled in configuration"),
		Suggestion: "Enable sync in ~/.config/jurnalguru/config.yaml by setting 'sync.enabled: true'",
	}
}

// ErrRemoteUnavailable creates an error when the backup service cannot be reached
func ErrRemoteUnavailable(reason string) error {
	suggestion := "Check your internet connection and try again"
	if strings.Contains(reason, "no such host") {
		suggestion = "Check your DNS settings and internet connection"
	} else if strings.Contains(reason, "refused") {
		suggestion = "Check drive.endpoint in your configuration"
	} else if strings.Contains(reason, "timeout") || strings.Contains(reason, "deadline") {
		suggestion = "The backup service may be slow or unreachable. Try again later"
	}

	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("backup service unavailable: %s", reason),
		Suggestion: suggestion,
	}
}

// ErrInvalidBackupFile creates an error for a file that is not a backup
func ErrInvalidBackupFile(path string, cause error) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%s: %w", path, cause),
		Suggestion: "Choose a file created by 'jurnalguru backup local' or the web app",
	}
}

// ErrInvalidDate creates an error for invalid date formats
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date format: %s", dateStr),
		Suggestion: "Use YYYY-MM-DD format (e.g., 2026-01-15)",
	}
}

// ErrInvalidStatus creates an error for invalid status values
func ErrInvalidStatus(status string, validStatuses []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid status: %s", status),
		Suggestion: fmt.Sprintf("Valid statuses: %s", strings.Join(validStatuses, ", ")),
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/jurnalguru/config.yaml and fix the '%s' field", field),
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}
