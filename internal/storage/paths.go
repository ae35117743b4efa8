// Package storage keeps preferences, statistics and finished game records
// in an embedded BadgerDB.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "clickchess"

// GetDataDir resolves the directory clickchess keeps its files in and
// creates it. A non-empty override (the data_dir setting or
// CLICKCHESS_DATA_DIR) is taken as the directory itself, with no
// application subdirectory added. An empty override selects the per-user
// data directory of the platform plus a clickchess subdirectory.
func GetDataDir(override string) (string, error) {
	dir := filepath.Clean(override)
	if override == "" {
		base, err := userDataHome()
		if err != nil {
			return "", fmt.Errorf("locate data directory: %w", err)
		}
		dir = filepath.Join(base, appName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// userDataHome is the platform's per-user data root. XDG_DATA_HOME
// replaces it outside macOS and Windows.
func userDataHome() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "AppData", "Roaming"), nil
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}

// GetDatabaseDir returns the db subdirectory of GetDataDir(override),
// where the BadgerDB files live.
func GetDatabaseDir(override string) (string, error) {
	dataDir, err := GetDataDir(override)
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return "", err
	}
	return dbDir, nil
}
