package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), CONFIG_FILE_PATH)
	if err := os.WriteFile(path, []byte(content), CONFIG_FILE_PERM); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Drive.FolderName != "Jurnal_Mengajar_Backup" {
		t.Errorf("FolderName = %q", cfg.Drive.FolderName)
	}
	if cfg.Drive.SyncFile != "jurnal_auto_sync.json" {
		t.Errorf("SyncFile = %q", cfg.Drive.SyncFile)
	}
	if cfg.Sync.QuietPeriod != 5*time.Second || cfg.Sync.SuccessDisplay != 3*time.Second {
		t.Errorf("Unexpected sync timings %v / %v", cfg.Sync.QuietPeriod, cfg.Sync.SuccessDisplay)
	}
	if !cfg.Sync.Enabled || !cfg.Sync.WatchDatabase {
		t.Error("Sync and database watching should default to on")
	}
	if cfg.Backup.Frequency != "off" {
		t.Errorf("Frequency = %q, want off", cfg.Backup.Frequency)
	}
	if cfg.Log.MaxSizeMB != 10 {
		t.Errorf("MaxSizeMB = %d", cfg.Log.MaxSizeMB)
	}
}

func TestLoadOverridesSample(t *testing.T) {
	path := writeConfig(t, `
drive:
  folder_name: Backup_Guru
sync:
  quiet_period: 2s
backup:
  frequency: weekly
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Drive.FolderName != "Backup_Guru" {
		t.Errorf("FolderName = %q", cfg.Drive.FolderName)
	}
	if cfg.Drive.SyncFile != "jurnal_auto_sync.json" {
		t.Errorf("Unset keys should keep sample values, got %q", cfg.Drive.SyncFile)
	}
	if cfg.Sync.QuietPeriod != 2*time.Second {
		t.Errorf("QuietPeriod = %v", cfg.Sync.QuietPeriod)
	}
	if cfg.Backup.Frequency != "weekly" {
		t.Errorf("Frequency = %q", cfg.Backup.Frequency)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("JURNALGURU_DRIVE_CLIENT_ID", "client-from-env")
	t.Setenv("JURNALGURU_SYNC_ENABLED", "false")

	cfg, err := Load(writeConfig(t, "drive:\n  client_id: from-file\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Drive.ClientID != "client-from-env" {
		t.Errorf("Env should override the file, got %q", cfg.Drive.ClientID)
	}
	if cfg.Sync.Enabled {
		t.Error("JURNALGURU_SYNC_ENABLED=false should disable sync")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, "")
	dotEnv := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(dotEnv, []byte("JURNALGURU_DRIVE_CLIENT_SECRET=s3cret\nJURNALGURU_DRIVE_CLIENT_ID=abc\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// godotenv sets process variables; make sure they are cleaned up.
	t.Setenv("JURNALGURU_DRIVE_CLIENT_SECRET", "")
	os.Unsetenv("JURNALGURU_DRIVE_CLIENT_SECRET")
	t.Setenv("JURNALGURU_DRIVE_CLIENT_ID", "")
	os.Unsetenv("JURNALGURU_DRIVE_CLIENT_ID")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Drive.ClientSecret != "s3cret" || cfg.Drive.ClientID != "abc" {
		t.Errorf("Expected .env values, got %q / %q", cfg.Drive.ClientID, cfg.Drive.ClientSecret)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{"bad frequency", "backup:\n  frequency: hourly\n", "Frequency"},
		{"non-json sync file", "drive:\n  sync_file: jurnal.txt\n", "SyncFile"},
		{"zero quiet period", "sync:\n  quiet_period: 0s\n", "QuietPeriod"},
		{"bad endpoint", "drive:\n  endpoint: not a url\n", "Endpoint"},
		{"secret without id", "drive:\n  client_secret: x\n", "client_id"},
		{"invalid yaml", "drive: [unclosed", "invalid YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Error %q should mention %q", err, tt.errContains)
			}
		})
	}
}

func TestSetCustomConfigPath(t *testing.T) {
	defer func() { customConfigPath = "" }()

	dir := t.TempDir()
	SetCustomConfigPath(dir)
	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if want := filepath.Join(dir, CONFIG_FILE_PATH); got != want {
		t.Errorf("Directory path: got %s, want %s", got, want)
	}

	file := filepath.Join(dir, "other.yaml")
	SetCustomConfigPath(file)
	if got, _ := GetConfigPath(); got != file {
		t.Errorf("File path: got %s, want %s", got, file)
	}
}

func TestGetConfigPathDefault(t *testing.T) {
	customConfigPath = ""
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if want := "/tmp/xdg/jurnalguru/config.yaml"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCreateConfigFromSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", CONFIG_FILE_PATH)
	if err := createConfigFromSample(path); err != nil {
		t.Fatalf("createConfigFromSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Sample was not written: %v", err)
	}
	if string(data) != string(SampleConfig()) {
		t.Error("Written config should equal the sample")
	}
}

func TestExpandedPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := &Config{
		Database: DatabaseConfig{Path: "~/jurnal/jurnal.db"},
		Backup:   BackupConfig{Directory: "$HOME/backups"},
	}
	if got := cfg.DatabasePath(); got != filepath.Join(home, "jurnal/jurnal.db") {
		t.Errorf("DatabasePath = %s", got)
	}
	if got := cfg.BackupDir(); got != filepath.Join(home, "backups") {
		t.Errorf("BackupDir = %s", got)
	}
}
