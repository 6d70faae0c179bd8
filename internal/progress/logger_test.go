package progress

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tmpDir := t.TempDir()
	var live bytes.Buffer

	logger, err := NewLogger(Config{
		LogsDir:   tmpDir,
		ProjectID: "tower-a",
		Command:   "review",
		Actor:     "rita",
		Writer:    &live,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)
	defer logger.Close()

	assert.FileExists(t, logger.Path())
	assert.Contains(t, logger.Path(), "tower-a")
	assert.Equal(t, "tower-a", logger.ProjectID())

	logger.Printf("review %s by %s", "0/0/1", "rita")
	logger.Section("Dispatch")
	logger.Errorf("notify %s: %s", "review_result", "outbox unavailable")
	logger.Exit("ok", 42)
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close(), "closing twice is a no-op")

	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "# wbstrack activity log")
	assert.Contains(t, content, "Project: tower-a")
	assert.Contains(t, content, "Command: review")
	assert.Contains(t, content, "Actor: rita")
	assert.Contains(t, content, "review 0/0/1 by rita")
	assert.Contains(t, content, "--- Dispatch ---")
	assert.Contains(t, content, "ERROR: notify review_result: outbox unavailable")
	assert.Contains(t, content, "Outcome: ok")
	assert.Contains(t, content, "Project progress: 42%")
	assert.Contains(t, content, "Errors: 1")

	assert.Contains(t, live.String(), "review 0/0/1 by rita")
	assert.Contains(t, live.String(), "ERROR: notify review_result")
	assert.NotContains(t, live.String(), "# wbstrack activity log")
}

func TestNewLogger_RequiresDir(t *testing.T) {
	_, err := NewLogger(Config{ProjectID: "x"})
	require.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple-id", "simple-id"},
		{"./plans/tower.md", ".-plans-tower.md"},
		{"/path/to/file.md", "path-to-file.md"}, // leading dash trimmed
		{"has spaces here", "has-spaces-here"},
		{"has:colons:too", "has-colons-too"},
		{"special!@#$chars", "specialchars"},
		{"", "unnamed"},
		{"a", "a"},
		{strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeFilename(tt.input))
		})
	}
}

func TestFindLogs(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		"20260129-120000-tower-a.log",
		"20260129-130000-tower-b.log",
		"20260129-140000-tower-a.log",
		"notes.txt",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, f), []byte("test"), 0o644))
	}

	logs, err := FindLogs(tmpDir, "")
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "tower-a", logs[0].ProjectID)
	assert.Equal(t, "tower-b", logs[1].ProjectID)

	logs, err = FindLogs(tmpDir, "tower-a")
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = FindLogs(filepath.Join(tmpDir, "missing"), "")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestFindLatestLog(t *testing.T) {
	tmpDir := t.TempDir()
	older := filepath.Join(tmpDir, "20260129-120000-tower-a.log")
	newer := filepath.Join(tmpDir, "20260130-080000-tower-a.log")
	require.NoError(t, os.WriteFile(older, []byte("test"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("test"), 0o644))

	lf, err := FindLatestLog(tmpDir, "tower-a")
	require.NoError(t, err)
	require.NotNil(t, lf)
	assert.Equal(t, newer, lf.Path)

	lf, err = FindLatestLog(tmpDir, "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, lf)
}

func TestParseLogFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		expectNil bool
		projectID string
	}{
		{"valid", "20260129-120000-tower-a.log", false, "tower-a"},
		{"valid no project", "20260129-120000-.log", false, ""},
		{"too short", "short.log", true, ""},
		{"invalid timestamp", "invalid-timestamp-source.log", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseLogFilename("/tmp", tt.filename)
			if tt.expectNil {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.projectID, result.ProjectID)
		})
	}
}
