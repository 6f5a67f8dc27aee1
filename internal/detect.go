package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories
const AppName = "council"

// StatePaths holds where local state lives
type StatePaths struct {
	BasePath string // root of local state
	CacheDir string // offline session copies
}

// DetectStatePaths resolves the local state directory. A non-empty
// override wins; otherwise XDG_STATE_HOME, then the platform default.
func DetectStatePaths(override string) (StatePaths, error) {
	if override != "" {
		return newStatePaths(override), nil
	}

	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return newStatePaths(filepath.Join(xdg, AppName)), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return StatePaths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	var basePath string
	switch runtime.GOOS {
	case "darwin":
		basePath = filepath.Join(home, "Library/Application Support", AppName)
	case "windows":
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			basePath = filepath.Join(appData, AppName)
		} else {
			basePath = filepath.Join(home, "AppData", "Local", AppName)
		}
	default:
		basePath = filepath.Join(home, ".local/state", AppName)
	}
	return newStatePaths(basePath), nil
}

func newStatePaths(base string) StatePaths {
	return StatePaths{
		BasePath: base,
		CacheDir: filepath.Join(base, "cache"),
	}
}

// PrefsDBPath returns the path to the preferences database
func (sp StatePaths) PrefsDBPath() string {
	return filepath.Join(sp.BasePath, "prefs.db")
}

// HasCache checks if any session has been cached
func (sp StatePaths) HasCache() bool {
	_, err := os.Stat(filepath.Join(sp.CacheDir, "sessions.yaml"))
	return err == nil
}

// Ensure creates the state directories
func (sp StatePaths) Ensure() error {
	for _, dir := range []string{sp.BasePath, sp.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &StorageError{Path: dir, Op: "create", Err: err}
		}
	}
	return nil
}
