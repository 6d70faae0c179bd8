package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexander-akhmetov/wbstrack/internal/workflow"
)

// clearEnv unsets every WBSTRACK_* override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WBSTRACK_DB_PATH", "WBSTRACK_OUTBOX_PATH", "WBSTRACK_LOGS_DIR",
		"WBSTRACK_MAX_CONFLICTS", "WBSTRACK_RETRY_MAX_ATTEMPTS", "WBSTRACK_RETRY_DELAY",
		"WBSTRACK_CASCADE_ALLOW_EMPTY_LEVELS", "WBSTRACK_ALLOW_RESUBMIT_APPROVED",
		"WBSTRACK_OTEL_ENDPOINT",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("WBSTRACK_STATE_DIR", "/state")
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoadEmbedded(t *testing.T) {
	cfg, err := loadEmbedded()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxConflicts)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.Delay)
	assert.Equal(t, 10, cfg.Points.TaskCompletion)
	assert.Equal(t, 5, cfg.Points.TaskReview)
	assert.Equal(t, 20, cfg.Points.SubPackage)
	assert.Equal(t, 50, cfg.Points.Package)
	assert.Equal(t, 100, cfg.Points.Project)
	assert.False(t, cfg.Cascade.AllowEmptyLevels)
	assert.False(t, cfg.Workflow.AllowResubmitApproved)
	assert.Empty(t, cfg.Telemetry.Endpoint)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithDirs_InstallsDefaults(t *testing.T) {
	clearEnv(t)
	globalDir := filepath.Join(t.TempDir(), "wbstrack")

	cfg, err := LoadWithDirs(globalDir, "")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(globalDir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/state", "wbstrack.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("/state", "outbox.jsonl"), cfg.OutboxPath)
	assert.Equal(t, filepath.Join("/state", "logs"), cfg.LogsDir)
	assert.Equal(t, globalDir, cfg.ConfigDir())
}

func TestLoadWithDirs_LocalOverridesGlobal(t *testing.T) {
	clearEnv(t)
	globalDir := t.TempDir()
	localDir := t.TempDir()

	writeConfig(t, globalDir, "max_conflicts: 5\npoints:\n  project: 500\n  package: 70\n")
	writeConfig(t, localDir, "points:\n  project: 0\n")

	cfg, err := LoadWithDirs(globalDir, localDir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxConflicts)       // from global
	assert.Equal(t, 70, cfg.Points.Package)    // from global
	assert.Equal(t, 0, cfg.Points.Project)     // explicit zero from local
	assert.Equal(t, 20, cfg.Points.SubPackage) // from embedded default
	assert.Equal(t, localDir, cfg.LocalDir())
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WBSTRACK_MAX_CONFLICTS", "9")
	t.Setenv("WBSTRACK_RETRY_DELAY", "250ms")
	t.Setenv("WBSTRACK_CASCADE_ALLOW_EMPTY_LEVELS", "true")
	t.Setenv("WBSTRACK_OTEL_ENDPOINT", "http://localhost:4318")

	cfg, err := loadEmbedded()
	require.NoError(t, err)
	require.NoError(t, cfg.applyEnv())

	assert.Equal(t, 9, cfg.MaxConflicts)
	assert.True(t, cfg.MaxConflictsSet)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
	assert.True(t, cfg.Cascade.AllowEmptyLevels)
	assert.Equal(t, "http://localhost:4318", cfg.Telemetry.Endpoint)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts, "unset variables leave values alone")
	assert.Contains(t, cfg.Sources(), "env:WBSTRACK_MAX_CONFLICTS")
}

func TestApplyEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("WBSTRACK_MAX_CONFLICTS", "many")

	cfg, err := loadEmbedded()
	require.NoError(t, err)
	err = cfg.applyEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestEnvBetweenGlobalAndLocal(t *testing.T) {
	clearEnv(t)
	globalDir := t.TempDir()
	localDir := t.TempDir()

	writeConfig(t, globalDir, "max_conflicts: 4\nretry:\n  max_attempts: 6\n")
	t.Setenv("WBSTRACK_RETRY_MAX_ATTEMPTS", "7")
	t.Setenv("WBSTRACK_MAX_CONFLICTS", "8")
	writeConfig(t, localDir, "max_conflicts: 2\n")

	cfg, err := LoadWithDirs(globalDir, localDir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retry.MaxAttempts) // env wins over global
	assert.Equal(t, 2, cfg.MaxConflicts)      // local wins over env
}

func TestApplyCLIFlags(t *testing.T) {
	cfg, err := loadEmbedded()
	require.NoError(t, err)
	cfg.DBPath = "/a.db"

	cfg.ApplyCLIFlags("", "/tmp/outbox.jsonl")
	assert.Equal(t, "/a.db", cfg.DBPath)
	assert.Equal(t, "/tmp/outbox.jsonl", cfg.OutboxPath)
	assert.Equal(t, []string{"cli:outbox"}, cfg.Sources())
}

func TestSources(t *testing.T) {
	clearEnv(t)
	globalDir := t.TempDir()
	localDir := t.TempDir()
	writeConfig(t, globalDir, "max_conflicts: 4\n")
	writeConfig(t, localDir, "retry:\n  delay: 2s\n")

	cfg, err := LoadWithDirs(globalDir, localDir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"embedded",
		filepath.Join(globalDir, "config.yaml"),
		filepath.Join(localDir, "config.yaml"),
	}, cfg.Sources())
	assert.Equal(t, 2*time.Second, cfg.Retry.Delay)
}

func TestLoadWithDirs_BadYAML(t *testing.T) {
	clearEnv(t)
	globalDir := t.TempDir()
	writeConfig(t, globalDir, "max_conflicts: [\n")

	_, err := LoadWithDirs(globalDir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load global config")
}

func TestParseConfigWithTracking(t *testing.T) {
	cfg, err := parseConfigWithTracking([]byte(`
points:
  task_review: 0
cascade:
  allow_empty_levels: false
`))
	require.NoError(t, err)

	assert.True(t, cfg.Points.TaskReviewSet)
	assert.False(t, cfg.Points.TaskCompletionSet)
	assert.True(t, cfg.Cascade.AllowEmptyLevelsSet)
	assert.False(t, cfg.Workflow.AllowResubmitApprovedSet)
	assert.False(t, cfg.MaxConflictsSet)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero conflicts", mutate: func(c *Config) { c.MaxConflicts = 0 }, wantErr: "max_conflicts"},
		{name: "zero attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: "retry.max_attempts"},
		{name: "negative delay", mutate: func(c *Config) { c.Retry.Delay = -time.Second }, wantErr: "retry.delay"},
		{name: "negative points", mutate: func(c *Config) { c.Points.Package = -1 }, wantErr: "points.package"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := loadEmbedded()
			require.NoError(t, err)
			tc.mutate(cfg)

			err = cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestToRules(t *testing.T) {
	cfg, err := loadEmbedded()
	require.NoError(t, err)
	cfg.Cascade.AllowEmptyLevels = true

	r := cfg.ToRules()
	assert.Equal(t, workflow.Points{TaskCompletion: 10, TaskReview: 5}, r.Points)
	assert.Equal(t, 100, r.Cascade.Points.Project)
	assert.True(t, r.Cascade.AllowEmptyLevels)
	assert.False(t, r.AllowResubmitApproved)

	cfg.Cascade.AllowEmptyLevels = false
	assert.Equal(t, workflow.DefaultRules(), cfg.ToRules(), "embedded defaults match the workflow defaults")
	assert.Len(t, cfg.ServiceOptions(), 3)
}
