package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const towerPlan = `# Project: Tower
Reviewers: erin

## Package: Structure
Reviewers: dave

### SubPackage: Foundations
Reviewers: carol
- [ ] Excavate (total: 10) @submitter:alice @reviewer:rita
`

// setupCLI isolates config, state and logs under a temp dir and writes the
// tower plan. It returns the plan path.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("WBSTRACK_STATE_DIR", filepath.Join(dir, "state"))
	t.Setenv("WBSTRACK_RETRY_DELAY", "1ms")
	for _, k := range []string{"WBSTRACK_DB_PATH", "WBSTRACK_OUTBOX_PATH", "WBSTRACK_LOGS_DIR", "WBSTRACK_OTEL_ENDPOINT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	planPath := filepath.Join(dir, "tower.md")
	require.NoError(t, os.WriteFile(planPath, []byte(towerPlan), 0o600))
	return planPath
}

// resetFlags restores every flag to its default so consecutive Execute calls
// do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	flagActor = ""

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCLI_FullApprovalChain(t *testing.T) {
	planPath := setupCLI(t)

	out := mustRun(t, "init", planPath)
	assert.Contains(t, out, "created tower (1 tasks, 0%)")

	out = mustRun(t, "list")
	assert.Contains(t, out, "tower")
	assert.Contains(t, out, "Tower")

	out = mustRun(t, "submit", "tower", "Structure", "Foundations", "Excavate", "10", "10", "--actor", "alice")
	assert.Contains(t, out, "notify review_requested -> rita")
	assert.Contains(t, out, "reward task_completed +10 -> alice")

	out = mustRun(t, "review", "tower", "0", "0", "0", "--approve", "--actor", "rita", "--comment", "clean cut")
	assert.Contains(t, out, `promoted subpackage "Foundations" to submitted`)
	assert.Contains(t, out, "notify level_submitted -> carol")

	out = mustRun(t, "review-level", "tower", "subpackage", "Structure", "Foundations", "--approve", "--actor", "carol")
	assert.Contains(t, out, `promoted package "Structure" to submitted`)

	out = mustRun(t, "review-level", "tower", "package", "0", "--approve", "--actor", "dave")
	assert.Contains(t, out, `promoted project "Tower" to submitted`)

	out = mustRun(t, "review-level", "tower", "project", "--approve", "--actor", "erin")
	assert.Contains(t, out, "tower: 100% (10/10), status approved")

	out = mustRun(t, "show", "tower")
	assert.Contains(t, out, "[0] Excavate 100% (10/10) approved")
	assert.Contains(t, out, `comment: "clean cut"`)

	out = mustRun(t, "show", "tower", "--json")
	assert.Contains(t, out, `"status": "approved"`)
	assert.Contains(t, out, `"progress": 100`)

	out = mustRun(t, "show", "tower", "--yaml")
	assert.Contains(t, out, "status: approved")

	out = mustRun(t, "outbox", "--user", "rita")
	assert.Contains(t, out, "review_requested")

	out = mustRun(t, "outbox", "--type", "reward", "--user", "alice")
	assert.Contains(t, out, "reward +10 -> alice")

	out = mustRun(t, "report", "tower")
	assert.Contains(t, out, "# Tower")
	assert.Contains(t, out, "**Progress:** 100%")

	out = mustRun(t, "export", "tower")
	assert.Contains(t, out, "- [x] Excavate (total: 10, completed: 10) @submitter:alice @reviewer:rita")

	out = mustRun(t, "logs", "tower")
	assert.Contains(t, out, "tower")

	out = mustRun(t, "logs", "tower", "--latest")
	assert.Contains(t, out, "Outcome: ok")
}

func TestCLI_RejectedLevelIsResubmitted(t *testing.T) {
	planPath := setupCLI(t)
	mustRun(t, "init", planPath)
	mustRun(t, "submit", "tower", "0", "0", "0", "10", "10", "--actor", "alice")
	mustRun(t, "review", "tower", "0", "0", "0", "--approve", "--actor", "rita")

	out := mustRun(t, "review-level", "tower", "subpackage", "0", "0", "--reject", "--actor", "carol", "--comment", "missing photos")
	assert.Contains(t, out, "notify level_review_result")

	_, err := runCLI(t, "review-level", "tower", "subpackage", "0", "0", "--approve", "--actor", "carol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot approve from rejected")

	out = mustRun(t, "resubmit-level", "tower", "subpackage", "0", "0", "--actor", "alice", "--dry-run")
	assert.Contains(t, out, "would notify level_submitted -> carol")
	assert.NotContains(t, out, "reward level_completed")

	out = mustRun(t, "resubmit-level", "tower", "subpackage", "Structure", "Foundations", "--actor", "alice")
	assert.Contains(t, out, `promoted subpackage "Foundations" to submitted`)
	assert.NotContains(t, out, "reward level_completed")

	out = mustRun(t, "review-level", "tower", "subpackage", "0", "0", "--approve", "--actor", "carol")
	assert.Contains(t, out, `promoted package "Structure" to submitted`)

	_, err = runCLI(t, "resubmit-level", "tower", "package", "0", "--actor", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resubmit from submitted")
}

func TestCLI_DryRunDoesNotSave(t *testing.T) {
	planPath := setupCLI(t)
	mustRun(t, "init", planPath)

	out := mustRun(t, "submit", "tower", "0", "0", "0", "10", "10", "--actor", "alice", "--dry-run")
	assert.Contains(t, out, "-      [0] Excavate   0% (0/10) in-progress")
	assert.Contains(t, out, "+      [0] Excavate 100% (10/10) submitted")
	assert.Contains(t, out, "would notify review_requested -> rita")

	out = mustRun(t, "show", "tower")
	assert.Contains(t, out, "v1")
	assert.Contains(t, out, "[0] Excavate   0% (0/10) in-progress")

	out = mustRun(t, "outbox")
	assert.Contains(t, out, "No entries")
}

func TestCLI_Errors(t *testing.T) {
	planPath := setupCLI(t)
	mustRun(t, "init", planPath)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "duplicate init",
			args:    []string{"init", planPath},
			wantErr: "version conflict",
		},
		{
			name:    "missing actor",
			args:    []string{"submit", "tower", "0", "0", "0", "1", "10"},
			wantErr: "--actor is required",
		},
		{
			name:    "unknown project",
			args:    []string{"show", "nope"},
			wantErr: "project not found",
		},
		{
			name:    "unknown task name",
			args:    []string{"submit", "tower", "0", "0", "Pour", "1", "10", "--actor", "alice"},
			wantErr: `no task named "Pour"`,
		},
		{
			name:    "index out of range",
			args:    []string{"submit", "tower", "3", "0", "0", "1", "10", "--actor", "alice"},
			wantErr: "package index 3 out of range [0,1)",
		},
		{
			name:    "non-numeric completed",
			args:    []string{"submit", "tower", "0", "0", "0", "x", "10", "--actor", "alice"},
			wantErr: "completed must be an integer",
		},
		{
			name:    "completed above total",
			args:    []string{"submit", "tower", "0", "0", "0", "11", "10", "--actor", "alice"},
			wantErr: "validation failed",
		},
		{
			name:    "review without verdict",
			args:    []string{"review", "tower", "0", "0", "0", "--actor", "rita"},
			wantErr: "approve reject",
		},
		{
			name:    "review of unsubmitted task",
			args:    []string{"review", "tower", "0", "0", "0", "--approve", "--actor", "rita"},
			wantErr: "invalid transition",
		},
		{
			name:    "bad level",
			args:    []string{"review-level", "tower", "task", "--approve", "--actor", "x"},
			wantErr: "level must be subpackage, package or project",
		},
		{
			name:    "level args mismatch",
			args:    []string{"review-level", "tower", "package", "--approve", "--actor", "x"},
			wantErr: "package needs 1 location argument(s), got 0",
		},
		{
			name:    "bad outbox type",
			args:    []string{"outbox", "--type", "email"},
			wantErr: "--type must be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCLI_ConfigShow(t *testing.T) {
	setupCLI(t)
	out := mustRun(t, "config", "show", "--db", "/tmp/custom.db")
	assert.Contains(t, out, "db_path:     /tmp/custom.db")
	assert.Contains(t, out, "cli:db")
	assert.Contains(t, out, "retry.delay:        1ms")
	assert.Contains(t, out, "endpoint: (disabled)")
}
