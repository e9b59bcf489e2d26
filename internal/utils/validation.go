package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format stored in journals, attendance and
// behavior logs.
const DateLayout = "2006-01-02"

// ParseDateFlag parses a date string in ISO format (YYYY-MM-DD).
// An empty string yields today's date.
func ParseDateFlag(dateStr string) (string, error) {
	if dateStr == "" {
		return time.Now().Format(DateLayout), nil
	}

	parsed, err := time.ParseInLocation(DateLayout, dateStr, time.Local)
	if err != nil {
		return "", ErrInvalidDate(dateStr)
	}
	return parsed.Format(DateLayout), nil
}

// ValidateScore checks that a grade lies within 0-100.
func ValidateScore(score float64) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("score must be between 0 and 100, got %g", score)
	}
	return nil
}
