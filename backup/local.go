package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jurnalguru/internal/utils"
)

// LocalFilePrefix starts the name of every backup written to disk.
const LocalFilePrefix = "backup-jurnal-lokal-"

// WriteLocalBackup exports the store to a new JSON file in dir and returns
// its path.
func (svc *Service) WriteLocalBackup(ctx context.Context, dir string) (string, error) {
	dir, err := utils.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	env, err := svc.Export(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to export data: %w", err)
	}
	data, err := utils.MarshalJSON(env)
	if err != nil {
		return "", err
	}

	name := LocalFilePrefix + svc.now().Format("2006-01-02T15-04-05") + ".json"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return path, nil
}

// ReadBackupFile loads and validates a backup file without applying it.
func ReadBackupFile(path string) (*Envelope, error) {
	path, err := utils.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	if !json.Valid(data) {
		return nil, invalid("file is not valid JSON")
	}
	return ParseEnvelope(data)
}

// RestoreFromFile applies a backup file. Merge keeps local records the file
// lacks; Replace makes the store identical to the file.
func (svc *Service) RestoreFromFile(ctx context.Context, path string, mode RestoreMode) (*Envelope, error) {
	env, err := ReadBackupFile(path)
	if err != nil {
		return nil, err
	}
	if err := svc.restore(ctx, env, mode); err != nil {
		return nil, err
	}
	return env, nil
}

// Frequency is how often a scheduled cloud sync should run.
type Frequency string

const (
	FrequencyOff    Frequency = "off"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Period returns the interval for f, or zero when scheduling is off.
func (f Frequency) Period() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// IsBackupDue reports whether a scheduled sync should run at now given the
// last successful one. A device that never synced is due immediately.
func IsBackupDue(f Frequency, last, now time.Time) bool {
	period := f.Period()
	if period == 0 {
		return false
	}
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= period
}
