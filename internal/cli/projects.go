package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"

	"github.com/alexander-akhmetov/wbstrack/internal/plan"
)

var initID string

var initCmd = &cobra.Command{
	Use:   "init <plan.md>",
	Short: "Create a project from a markdown outline",
	Long: `Create a project from a markdown outline.

  # Project: Tower A
  Reviewers: erin
  ## Package: Structure
  ### SubPackage: Foundations
  - [ ] Excavate (total: 10) @submitter:alice @reviewer:rita

The project id defaults to the file name. A "Reviewers:" line directly under
a heading sets that node's reviewers.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

var (
	showJSON bool
	showYAML bool
)

var showCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show a project's status tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with their progress",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Print a project as a markdown outline that init can read",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var reportCmd = &cobra.Command{
	Use:   "report <project>",
	Short: "Render a markdown progress report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	initCmd.Flags().StringVar(&initID, "id", "", "Project id (default: plan file name)")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the project as JSON")
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "Print the project as YAML")
	showCmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

func runInit(cmd *cobra.Command, args []string) (err error) {
	p, err := plan.ParseFile(args[0], initID)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, a.Close(ctx)) }()

	if err := a.store.Create(ctx, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d tasks, %d%%)\n", p.ID, p.TaskCount(), p.Progress)
	return nil
}

func runList(cmd *cobra.Command, _ []string) (err error) {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, a.Close(ctx)) }()

	projects, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects")
		return nil
	}

	pl := plainPalette()
	if isTerminal(out) {
		pl = colorPalette()
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(pl.label).
		Headers("ID", "NAME", "STATUS", "PROGRESS", "VERSION", "UPDATED")
	for _, s := range projects {
		t.Row(s.ID, s.Name, pl.statusOf(s.Status), fmt.Sprintf("%d%%", s.Progress),
			fmt.Sprintf("%d", s.Version), s.UpdatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(out, t.String())
	return nil
}

func runShow(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, a.Close(ctx)) }()

	p, err := a.store.Load(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tty := isTerminal(out)
	switch {
	case showJSON:
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode project: %w", err)
		}
		data = pretty.Pretty(data)
		if tty {
			data = pretty.Color(data, nil)
		}
		_, err = out.Write(data)
		return err
	case showYAML:
		data, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode project: %w", err)
		}
		_, err = out.Write(data)
		return err
	}

	pl := plainPalette()
	if tty {
		pl = colorPalette()
	}
	fmt.Fprint(out, renderTree(p, pl))
	return nil
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, a.Close(ctx)) }()

	p, err := a.store.Load(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), plan.Format(p))
	return nil
}

func runReport(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, a.Close(ctx)) }()

	p, err := a.store.Load(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderMarkdown(markdownReport(p), isTerminal(out), terminalWidth(out)))
	return nil
}
