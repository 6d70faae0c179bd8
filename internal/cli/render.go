package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/rollup"
	"github.com/alexander-akhmetov/wbstrack/internal/workflow"
)

// 256-color palette.
const (
	colorGreen   = "42"  // approved
	colorRed     = "196" // rejected
	colorCyan    = "117" // submitted
	colorYellow  = "214" // in progress
	colorDim     = "241" // draft, labels
	colorMagenta = "205" // project title
)

// palette styles the status tree. The zero palette renders plain text.
type palette struct {
	title  lipgloss.Style
	label  lipgloss.Style
	status map[domain.Status]lipgloss.Style
}

func plainPalette() palette {
	return palette{title: lipgloss.NewStyle(), label: lipgloss.NewStyle()}
}

func colorPalette() palette {
	return palette{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorMagenta)),
		label: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		status: map[domain.Status]lipgloss.Style{
			domain.StatusDraft:      lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
			domain.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
			domain.StatusSubmitted:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
			domain.StatusApproved:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)).Bold(true),
			domain.StatusRejected:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		},
	}
}

func (pl palette) statusOf(st domain.Status) string {
	if st == "" {
		st = domain.StatusDraft
	}
	if s, ok := pl.status[st]; ok {
		return s.Render(string(st))
	}
	return string(st)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

func progressBar(pct, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// renderTree draws the project as an indented tree, one node per line.
func renderTree(p *domain.Project, pl palette) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %3d%% (%d/%d) %s v%d\n",
		pl.title.Render(p.Name), progressBar(p.Progress, 20), p.Progress, p.Completed, p.Total,
		pl.statusOf(p.Status), p.Version)
	writeUsers(&b, "  ", "reviewers", p.Reviewers, pl)

	for pi, pkg := range p.Packages {
		fmt.Fprintf(&b, "  %s [%d] %s %3d%% (%d/%d) %s\n",
			pl.label.Render("package"), pi, pkg.Name, pkg.Progress, pkg.Completed, pkg.Total, pl.statusOf(pkg.Status))
		writeUsers(&b, "    ", "reviewers", pkg.Reviewers, pl)

		for si, sub := range pkg.SubPackages {
			fmt.Fprintf(&b, "    %s [%d] %s %3d%% (%d/%d) %s\n",
				pl.label.Render("subpackage"), si, sub.Name, sub.Progress, sub.Completed, sub.Total, pl.statusOf(sub.Status))
			writeUsers(&b, "      ", "reviewers", sub.Reviewers, pl)

			for ti, t := range sub.Tasks {
				fmt.Fprintf(&b, "      [%d] %s %3d%% (%d/%d) %s\n",
					ti, t.Name, t.Progress, t.Completed, t.Total, pl.statusOf(t.Status))
				writeUsers(&b, "          ", "submitters", t.Submitters, pl)
				writeUsers(&b, "          ", "reviewers", t.Reviewers, pl)
				if t.ReviewComment != "" {
					fmt.Fprintf(&b, "          %s %q\n", pl.label.Render("comment:"), t.ReviewComment)
				}
			}
		}
	}
	return b.String()
}

func writeUsers(b *strings.Builder, indent, label string, users domain.UserSet, pl palette) {
	if users.Len() == 0 {
		return
	}
	fmt.Fprintf(b, "%s%s %s\n", indent, pl.label.Render(label+":"), strings.Join(users, ", "))
}

// formatEffect renders an effect on one line, payload keys sorted.
func formatEffect(e event.Effect) string {
	var b strings.Builder
	if e.Kind.IsReward() {
		fmt.Fprintf(&b, "reward %s +%d -> %s", e.Kind, e.Points, strings.Join(e.Targets, ", "))
		if e.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.Reason)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "notify %s -> %s", e.Kind, strings.Join(e.Targets, ", "))
	if len(e.Payload) > 0 {
		b.WriteString(" ")
		b.WriteString(formatPayload(e.Payload))
	}
	return b.String()
}

func formatPayload(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return strings.Join(parts, " ")
}

// printResult summarizes a completed operation.
func printResult(w io.Writer, res *workflow.Result) {
	p := res.Project
	fmt.Fprintf(w, "%s: %d%% (%d/%d), status %s, version %d\n", p.ID, p.Progress, p.Completed, p.Total, p.Status, p.Version)
	if res.Cascade != nil {
		for _, ro := range res.Cascade.Reopened {
			fmt.Fprintf(w, "reopened %s %q (was %s)\n", ro.Level, ro.Name, ro.From)
		}
		for _, pr := range res.Cascade.Promotions {
			fmt.Fprintf(w, "promoted %s %q to submitted\n", pr.Level, pr.Name)
		}
	}
	for _, e := range res.Effects {
		fmt.Fprintf(w, "  %s\n", formatEffect(e))
	}
	for _, err := range res.DispatchErrors {
		fmt.Fprintf(w, "  dispatch failed: %v\n", err)
	}
}

// markdownReport builds the project summary rendered by `wbstrack report`.
func markdownReport(p *domain.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Name)
	fmt.Fprintf(&b, "**Progress:** %d%% (%d of %d units approved)  \n", p.Progress, p.Completed, p.Total)
	fmt.Fprintf(&b, "**Status:** %s  \n", orDraft(p.Status))
	fmt.Fprintf(&b, "**Version:** %d\n\n", p.Version)

	sum := rollup.Summarize(p)
	b.WriteString("## Status counts\n\n")
	b.WriteString("| Level | draft | in-progress | submitted | approved | rejected |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, row := range []struct {
		name   string
		counts rollup.Counts
	}{
		{"Packages", sum.Packages},
		{"Subpackages", sum.SubPackages},
		{"Tasks", sum.Tasks},
	} {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d |\n", row.name,
			row.counts[domain.StatusDraft], row.counts[domain.StatusInProgress],
			row.counts[domain.StatusSubmitted], row.counts[domain.StatusApproved],
			row.counts[domain.StatusRejected])
	}

	b.WriteString("\n## Packages\n\n")
	for _, pkg := range p.Packages {
		fmt.Fprintf(&b, "### %s (%d%%, %s)\n\n", pkg.Name, pkg.Progress, orDraft(pkg.Status))
		for _, sub := range pkg.SubPackages {
			fmt.Fprintf(&b, "- **%s**: %d%% (%d/%d), %s\n", sub.Name, sub.Progress, sub.Completed, sub.Total, orDraft(sub.Status))
		}
		b.WriteString("\n")
	}

	var pending []string
	for _, pkg := range p.Packages {
		for _, sub := range pkg.SubPackages {
			for _, t := range sub.Tasks {
				if t.Status == domain.StatusSubmitted {
					pending = append(pending, fmt.Sprintf("- %s / %s / %s (reviewers: %s)",
						pkg.Name, sub.Name, t.Name, strings.Join(t.Reviewers, ", ")))
				}
			}
			if sub.Status == domain.StatusSubmitted {
				pending = append(pending, fmt.Sprintf("- subpackage %s / %s", pkg.Name, sub.Name))
			}
		}
		if pkg.Status == domain.StatusSubmitted {
			pending = append(pending, fmt.Sprintf("- package %s", pkg.Name))
		}
	}
	if p.Status == domain.StatusSubmitted {
		pending = append(pending, "- project "+p.Name)
	}
	if len(pending) > 0 {
		b.WriteString("## Awaiting review\n\n")
		b.WriteString(strings.Join(pending, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func orDraft(st domain.Status) domain.Status {
	if st == "" {
		return domain.StatusDraft
	}
	return st
}

// renderMarkdown styles md with glamour for a terminal, or returns it as is.
func renderMarkdown(md string, tty bool, width int) string {
	if !tty {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-6, 40)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
