// Package dirs resolves the XDG directories wbstrack reads and writes.
package dirs

import (
	"os"
	"path/filepath"
)

const appName = "wbstrack"

// ConfigDir returns the wbstrack configuration directory.
// Resolution order: XDG_CONFIG_HOME/wbstrack > ~/.config/wbstrack.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the wbstrack state directory, home of the project database
// and the outbox.
// Resolution order: WBSTRACK_STATE_DIR > XDG_STATE_HOME/wbstrack > ~/.local/state/wbstrack.
func StateDir() string {
	if dir := os.Getenv("WBSTRACK_STATE_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "state", appName)
	}
	return filepath.Join(home, ".local", "state", appName)
}

// LogsDir returns the activity log directory (StateDir/logs).
func LogsDir() string {
	return filepath.Join(StateDir(), "logs")
}

// DBPath returns the default project database path (StateDir/wbstrack.db).
func DBPath() string {
	return filepath.Join(StateDir(), appName+".db")
}

// OutboxPath returns the default outbox path (StateDir/outbox.jsonl).
func OutboxPath() string {
	return filepath.Join(StateDir(), "outbox.jsonl")
}
