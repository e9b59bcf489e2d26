package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jurnalguru/internal/utils"
)

// SyncState records this device's last successful cloud sync. It lives in
// the cache directory and is never uploaded.
type SyncState struct {
	LastSync   time.Time `json:"last_sync"`
	FileID     string    `json:"file_id,omitempty"`
	SyncCount  int       `json:"sync_count"`
	LastBackup string    `json:"last_local_backup,omitempty"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"`
}

// GetCacheDir returns the XDG-compliant cache directory path
func GetCacheDir() (string, error) {
	cacheDir, err := utils.AppDir("XDG_CACHE_HOME", ".cache")
	if err != nil {
		return "", err
	}
	return cacheDir, os.MkdirAll(cacheDir, 0755)
}

// GetCacheFile returns the full path to the sync state file
func GetCacheFile() (string, error) {
	cacheDir, err := GetCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "sync_state.json"), nil
}

// LoadSyncState reads the state at path. A missing or unreadable file
// yields an empty state bound to path.
func LoadSyncState(path string) *SyncState {
	s := &SyncState{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			utils.Warnf("Failed to read sync state: %v", err)
		}
		return s
	}
	if err := json.Unmarshal(data, s); err != nil {
		utils.Warnf("Ignoring corrupt sync state %s: %v", path, err)
		return &SyncState{path: path}
	}
	return s
}

// LoadDefault loads the state from the default cache file.
func LoadDefault() (*SyncState, error) {
	path, err := GetCacheFile()
	if err != nil {
		return nil, err
	}
	return LoadSyncState(path), nil
}

// RecordSync stores a successful cloud sync.
func (s *SyncState) RecordSync(at time.Time, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastSync = at.UTC()
	s.FileID = fileID
	s.SyncCount++
	return s.saveLocked()
}

// RecordLocalBackup stores the path of the latest local backup file.
func (s *SyncState) RecordLocalBackup(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastBackup = path
	return s.saveLocked()
}

// Snapshot returns a copy of the recorded values.
func (s *SyncState) Snapshot() (lastSync time.Time, fileID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LastSync, s.FileID, s.SyncCount
}

// Reset forgets the recorded sync, e.g. after sign-out.
func (s *SyncState) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastSync = time.Time{}
	s.FileID = ""
	s.SyncCount = 0
	return s.saveLocked()
}

func (s *SyncState) saveLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
