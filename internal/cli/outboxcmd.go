package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/outbox"
)

var (
	outboxUser string
	outboxKind string
	outboxType string
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "List dispatched notifications and rewards",
	Long: `List the notifications and rewards written to the outbox file, oldest first.

Examples:
  wbstrack outbox --user rita
  wbstrack outbox --kind review_requested
  wbstrack outbox --type reward`,
	Args: cobra.NoArgs,
	RunE: runOutbox,
}

func init() {
	outboxCmd.Flags().StringVar(&outboxUser, "user", "", "Only entries targeting this user")
	outboxCmd.Flags().StringVar(&outboxKind, "kind", "", "Only entries of this kind")
	outboxCmd.Flags().StringVar(&outboxType, "type", "", "Only notification or reward entries")
}

func runOutbox(cmd *cobra.Command, _ []string) error {
	if outboxType != "" && outboxType != outbox.TypeNotification && outboxType != outbox.TypeReward {
		return fmt.Errorf("--type must be %q or %q", outbox.TypeNotification, outbox.TypeReward)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := outbox.Read(cfg.OutboxPath, outbox.Filter{
		User: outboxUser,
		Kind: event.Kind(outboxKind),
		Type: outboxType,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(out, formatEntry(e))
	}
	return nil
}

func formatEntry(e outbox.Entry) string {
	at := e.At.Local().Format(time.DateTime)
	if e.Type == outbox.TypeReward {
		line := fmt.Sprintf("%s reward +%d -> %s", at, e.Points, strings.Join(e.Targets, ", "))
		if e.Reason != "" {
			line += " (" + e.Reason + ")"
		}
		return line
	}
	return at + " " + formatEffect(event.Effect{Kind: e.Kind, Targets: e.Targets, Payload: e.Payload})
}
