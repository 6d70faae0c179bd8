package progress

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogFile represents an activity log file.
type LogFile struct {
	Path      string
	ProjectID string
	Timestamp time.Time
}

// FindLogs finds log files in logsDir, optionally filtered by project ID.
// Files are returned sorted by timestamp, newest first.
func FindLogs(logsDir, projectID string) ([]LogFile, error) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No logs yet
		}
		return nil, err
	}

	var logs []LogFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}

		lf := parseLogFilename(logsDir, entry.Name())
		if lf == nil {
			continue
		}
		if projectID != "" && lf.ProjectID != sanitizeFilename(projectID) {
			continue
		}
		logs = append(logs, *lf)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})

	return logs, nil
}

// FindLatestLog finds the most recent log file for a project.
func FindLatestLog(logsDir, projectID string) (*LogFile, error) {
	logs, err := FindLogs(logsDir, projectID)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}

// parseLogFilename parses a log filename into a LogFile.
// Expected format: YYYYMMDD-HHMMSS-<project-id>.log
func parseLogFilename(dir, name string) *LogFile {
	base := strings.TrimSuffix(name, ".log")

	// Need at least timestamp prefix: YYYYMMDD-HHMMSS (15 chars)
	if len(base) < 16 {
		return nil
	}

	t, err := time.Parse("20060102-150405", base[:15])
	if err != nil {
		return nil
	}

	projectID := ""
	if len(base) > 16 {
		projectID = base[16:]
	}

	return &LogFile{
		Path:      filepath.Join(dir, name),
		ProjectID: projectID,
		Timestamp: t,
	}
}
