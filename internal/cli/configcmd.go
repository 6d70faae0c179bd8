package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/wbstrack/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wbstrack configuration",
	Long:  `View and manage wbstrack configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration with source annotations",
	Long: `Show the fully resolved configuration with annotations indicating
where each value came from.

Configuration is loaded from multiple sources with the following precedence:
  1. Embedded defaults (built into binary)
  2. Global config (~/.config/wbstrack/config.yaml)
  3. Environment variables (WBSTRACK_*)
  4. Local config (.wbstrack/config.yaml)
  5. CLI flags (highest precedence)`,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "# wbstrack Configuration")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Sources (in order of precedence)")
	for _, src := range cfg.Sources() {
		fmt.Fprintf(w, "  - %s\n", src)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Directories")
	fmt.Fprintf(w, "  Global config: %s\n", cfg.ConfigDir())
	if cfg.LocalDir() != "" {
		fmt.Fprintf(w, "  Local config:  %s\n", cfg.LocalDir())
	} else {
		fmt.Fprintf(w, "  Local config:  (none detected)\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Storage")
	fmt.Fprintf(w, "  db_path:     %s\n", cfg.DBPath)
	fmt.Fprintf(w, "  outbox_path: %s\n", cfg.OutboxPath)
	fmt.Fprintf(w, "  logs_dir:    %s\n", cfg.LogsDir)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Retries")
	fmt.Fprintf(w, "  max_conflicts:      %d\n", cfg.MaxConflicts)
	fmt.Fprintf(w, "  retry.max_attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(w, "  retry.delay:        %s\n", cfg.Retry.Delay)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Points")
	fmt.Fprintf(w, "  task_completion: %d\n", cfg.Points.TaskCompletion)
	fmt.Fprintf(w, "  task_review:     %d\n", cfg.Points.TaskReview)
	fmt.Fprintf(w, "  subpackage:      %d\n", cfg.Points.SubPackage)
	fmt.Fprintf(w, "  package:         %d\n", cfg.Points.Package)
	fmt.Fprintf(w, "  project:         %d\n", cfg.Points.Project)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Workflow")
	fmt.Fprintf(w, "  cascade.allow_empty_levels:       %t\n", cfg.Cascade.AllowEmptyLevels)
	fmt.Fprintf(w, "  workflow.allow_resubmit_approved: %t\n", cfg.Workflow.AllowResubmitApproved)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Telemetry")
	if cfg.Telemetry.Endpoint != "" {
		fmt.Fprintf(w, "  endpoint: %s\n", cfg.Telemetry.Endpoint)
	} else {
		fmt.Fprintf(w, "  endpoint: (disabled)\n")
	}
}
