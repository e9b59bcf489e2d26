package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home directory: %v", err)
	}
	t.Setenv("BACKUP_ROOT", "~/backups")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde only", "~", homeDir},
		{"tilde with path", "~/backups/jurnal.json", filepath.Join(homeDir, "backups/jurnal.json")},
		{"absolute path unchanged", "/var/lib/jurnal.db", "/var/lib/jurnal.db"},
		{"relative path unchanged", "data/jurnal.db", "data/jurnal.db"},
		{"empty string", "", ""},
		{"tilde not at start", "/path/~/file", "/path/~/file"},
		{"env var then tilde", "$BACKUP_ROOT/latest.json", filepath.Join(homeDir, "backups/latest.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath() error = %v", err)
			}
			if result != tt.expected {
				t.Errorf("ExpandPath() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAppDir(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	dir, err := AppDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		t.Fatalf("AppDir failed: %v", err)
	}
	if dir != filepath.Join(dataHome, AppName) {
		t.Errorf("Expected %s, got %s", filepath.Join(dataHome, AppName), dir)
	}

	t.Setenv("XDG_DATA_HOME", "")
	homeDir, _ := os.UserHomeDir()
	dir, err = AppDir("XDG_DATA_HOME", ".local", "share")
	if err != nil {
		t.Fatalf("AppDir failed: %v", err)
	}
	if dir != filepath.Join(homeDir, ".local", "share", AppName) {
		t.Errorf("Unexpected fallback dir %s", dir)
	}
}
