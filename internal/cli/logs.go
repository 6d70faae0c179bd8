package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/wbstrack/internal/progress"
)

var logsLatest bool

var logsCmd = &cobra.Command{
	Use:   "logs [project]",
	Short: "List activity logs",
	Long: `List activity logs, newest first. With --latest, print the most recent log
of the project instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsLatest, "latest", false, "Print the most recent log")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var projectID string
	if len(args) == 1 {
		projectID = args[0]
	}
	out := cmd.OutOrStdout()

	if logsLatest {
		lf, err := progress.FindLatestLog(cfg.LogsDir, projectID)
		if err != nil {
			return fmt.Errorf("find logs: %w", err)
		}
		if lf == nil {
			fmt.Fprintln(out, "No logs")
			return nil
		}
		f, err := os.Open(lf.Path)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		_, err = io.Copy(out, f)
		return err
	}

	logs, err := progress.FindLogs(cfg.LogsDir, projectID)
	if err != nil {
		return fmt.Errorf("find logs: %w", err)
	}
	if len(logs) == 0 {
		fmt.Fprintln(out, "No logs")
		return nil
	}
	for _, lf := range logs {
		fmt.Fprintf(out, "%s  %-20s %s\n", lf.Timestamp.Format(time.DateTime), lf.ProjectID, lf.Path)
	}
	return nil
}
