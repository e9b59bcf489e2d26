package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName names the per-user directories the application writes to.
const AppName = "jurnalguru"

// ExpandPath expands ~ and environment variables in file paths
// Examples:
//   - "~/backups/jurnal.json" -> "/home/user/backups/jurnal.json"
//   - "$HOME/data" -> "/home/user/data"
//   - "/abs/path" -> "/abs/path" (unchanged)
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return homeDir, nil
		}
		path = filepath.Join(homeDir, path[2:])
	}

	return path, nil
}

// AppDir returns the application's directory under an XDG base directory.
// envVar names the XDG variable (e.g. XDG_DATA_HOME); fallback is the path
// below the home directory used when it is unset (e.g. ".local", "share").
func AppDir(envVar string, fallback ...string) (string, error) {
	if base := os.Getenv(envVar); base != "" {
		return filepath.Join(base, AppName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{homeDir}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}
