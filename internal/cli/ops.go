package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/workflow"
)

var (
	assignSubmitters []string
	assignReviewers  []string

	opDryRun bool

	reviewApprove bool
	reviewReject  bool
	reviewComment string
)

var assignCmd = &cobra.Command{
	Use:   "assign <project> <package> <subpackage> <task>",
	Short: "Assign submitters and reviewers to a task",
	Example: `  wbstrack assign tower Structure Foundations Excavate \
    --submitter alice --reviewer rita --actor pm`,
	Args: cobra.ExactArgs(4),
	RunE: runAssign,
}

var submitCmd = &cobra.Command{
	Use:   "submit <project> <package> <subpackage> <task> <completed> <total>",
	Short: "Report progress on a task",
	Long: `Report progress on a task. Reaching 100% submits the task for review and
notifies its reviewers.`,
	Args: cobra.ExactArgs(6),
	RunE: runSubmit,
}

var reviewCmd = &cobra.Command{
	Use:   "review <project> <package> <subpackage> <task>",
	Short: "Approve or reject a submitted task",
	Long: `Approve or reject a submitted task. An approval that completes a subpackage
submits it for review, and so on up the tree.`,
	Args: cobra.ExactArgs(4),
	RunE: runReview,
}

var reviewLevelCmd = &cobra.Command{
	Use:   "review-level <project> <subpackage|package|project> [package] [subpackage]",
	Short: "Approve or reject a submitted subpackage, package or project",
	Example: `  wbstrack review-level tower subpackage Structure Foundations --approve --actor carol
  wbstrack review-level tower package Structure --approve --actor dave
  wbstrack review-level tower project --approve --actor erin`,
	Args: cobra.RangeArgs(2, 4),
	RunE: runReviewLevel,
}

var resubmitLevelCmd = &cobra.Command{
	Use:   "resubmit-level <project> <subpackage|package|project> [package] [subpackage]",
	Short: "Send a rejected subpackage, package or project back for review",
	Example: `  wbstrack resubmit-level tower subpackage Structure Foundations --actor alice`,
	Args:    cobra.RangeArgs(2, 4),
	RunE:    runResubmitLevel,
}

func init() {
	assignCmd.Flags().StringSliceVar(&assignSubmitters, "submitter", nil, "Submitter user id (repeatable)")
	assignCmd.Flags().StringSliceVar(&assignReviewers, "reviewer", nil, "Reviewer user id (repeatable)")

	for _, c := range []*cobra.Command{assignCmd, submitCmd, reviewCmd, reviewLevelCmd, resubmitLevelCmd} {
		c.Flags().BoolVar(&opDryRun, "dry-run", false, "Show the resulting change without saving or notifying")
	}
	for _, c := range []*cobra.Command{reviewCmd, reviewLevelCmd} {
		c.Flags().BoolVar(&reviewApprove, "approve", false, "Approve")
		c.Flags().BoolVar(&reviewReject, "reject", false, "Reject")
		c.Flags().StringVar(&reviewComment, "comment", "", "Review comment")
		c.MarkFlagsMutuallyExclusive("approve", "reject")
		c.MarkFlagsOneRequired("approve", "reject")
	}
}

// operation is one workflow change, runnable for real through the service or
// as a dry run against a loaded copy. loc holds the location arguments, each
// an index or a name; level is empty for task operations.
type operation struct {
	name      string
	projectID string
	level     event.Level
	loc       []string
	actor     string
	run       func(ctx context.Context, svc *workflow.Service, path domain.Path) (*workflow.Result, error)
	apply     func(r workflow.Rules, p *domain.Project, path domain.Path, now time.Time) (workflow.Outcome, error)
}

func runAssign(cmd *cobra.Command, args []string) error {
	return execute(cmd, operation{
		name:      "assign",
		projectID: args[0],
		loc:       args[1:],
		actor:     flagActor,
		run: func(ctx context.Context, svc *workflow.Service, path domain.Path) (*workflow.Result, error) {
			return svc.AssignTask(ctx, args[0], path, assignSubmitters, assignReviewers, flagActor)
		},
		apply: func(r workflow.Rules, p *domain.Project, path domain.Path, now time.Time) (workflow.Outcome, error) {
			return r.Assign(p, path, assignSubmitters, assignReviewers, now)
		},
	})
}

func runSubmit(cmd *cobra.Command, args []string) error {
	completed, err := strconv.Atoi(args[4])
	if err != nil {
		return fmt.Errorf("completed must be an integer: %q", args[4])
	}
	total, err := strconv.Atoi(args[5])
	if err != nil {
		return fmt.Errorf("total must be an integer: %q", args[5])
	}
	return execute(cmd, operation{
		name:      "submit",
		projectID: args[0],
		loc:       args[1:4],
		actor:     flagActor,
		run: func(ctx context.Context, svc *workflow.Service, path domain.Path) (*workflow.Result, error) {
			return svc.SubmitProgress(ctx, args[0], path, completed, total, flagActor)
		},
		apply: func(r workflow.Rules, p *domain.Project, path domain.Path, now time.Time) (workflow.Outcome, error) {
			return r.Submit(p, path, completed, total, flagActor, now)
		},
	})
}

func runReview(cmd *cobra.Command, args []string) error {
	approved := reviewApprove && !reviewReject
	return execute(cmd, operation{
		name:      "review",
		projectID: args[0],
		loc:       args[1:],
		actor:     flagActor,
		run: func(ctx context.Context, svc *workflow.Service, path domain.Path) (*workflow.Result, error) {
			return svc.ReviewTask(ctx, args[0], path, approved, flagActor, reviewComment)
		},
		apply: func(r workflow.Rules, p *domain.Project, path domain.Path, now time.Time) (workflow.Outcome, error) {
			return r.Review(p, path, approved, flagActor, reviewComment, now)
		},
	})
}

func runReviewLevel(cmd *cobra.Command, args []string) error {
	level, err := parseLevelArgs(args[1:])
	if err != nil {
		return err
	}
	approved := reviewApprove && !reviewReject
	return execute(cmd, operation{
		name:      "review-level",
		projectID: args[0],
		level:     level,
		loc:       args[2:],
		actor:     flagActor,
		run: func(ctx context.Context, svc *workflow.Service, path domain.Path) (*workflow.Result, error) {
			return svc.ReviewLevel(ctx, args[0], level, path, approved, flagActor, reviewComment)
		},
		apply: func(r workflow.Rules, p *domain.Project, path domain.Path, now time.Time) (workflow.Outcome, error) {
			return r.ReviewLevel(p, level, path, approved, flagActor, reviewComment, now)
		},
	})
}

func runResubmitLevel(cmd *cobra.Command, args []string) error {
	level, err := parseLevelArgs(args[1:])
	if err != nil {
		return err
	}
	return execute(cmd, operation{
		name:      "resubmit-level",
		projectID: args[0],
		level:     level,
		loc:       args[2:],
		actor:     flagActor,
		run: func(ctx context.Context, svc *workflow.Service, path domain.Path) (*workflow.Result, error) {
			return svc.ResubmitLevel(ctx, args[0], level, path, flagActor)
		},
		apply: func(r workflow.Rules, p *domain.Project, path domain.Path, now time.Time) (workflow.Outcome, error) {
			return r.ResubmitLevel(p, level, path, flagActor, now)
		},
	})
}

func execute(cmd *cobra.Command, op operation) (err error) {
	if op.actor == "" {
		return fmt.Errorf("--actor is required (or set WBSTRACK_ACTOR)")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { err = joinClose(err, a.Close(ctx)) }()

	p, err := a.store.Load(ctx, op.projectID)
	if err != nil {
		return err
	}
	path, err := locate(p, op.loc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opDryRun {
		return dryRun(out, a.cfg.ToRules(), p, path, op)
	}

	sess, err := a.session(op.projectID, op.name, op.actor, nil)
	if err != nil {
		return err
	}
	where := path.String()
	if op.level != "" {
		where = string(op.level) + " " + strings.Join(op.loc, "/")
	}
	sess.log.Section(op.name + " " + where)
	res, err := op.run(ctx, sess.svc, path)
	sess.finish(res, err)
	if err != nil {
		return err
	}
	printResult(out, res)
	fmt.Fprintf(out, "log: %s\n", sess.log.Path())
	return nil
}

// dryRun applies the rule to a copy of p and prints the status tree diff and
// the effects that would be dispatched.
func dryRun(w io.Writer, rules workflow.Rules, p *domain.Project, path domain.Path, op operation) error {
	work := p.Clone()
	out, err := op.apply(rules, work, path, time.Now().UTC())
	if err != nil {
		return err
	}

	before := renderTree(p, plainPalette())
	after := renderTree(work, plainPalette())
	if before == after {
		fmt.Fprintln(w, "no status changes")
	} else {
		fmt.Fprint(w, udiff.Unified(p.ID+" (stored)", p.ID+" (after "+op.name+")", before, after))
	}
	for _, e := range out.Effects {
		fmt.Fprintf(w, "would %s\n", formatEffect(e))
	}
	return nil
}

// locate turns up to three location arguments (package, subpackage, task)
// into a path. Each argument is an index or a case-insensitive name.
func locate(p *domain.Project, loc []string) (domain.Path, error) {
	var path domain.Path
	if len(loc) == 0 {
		return path, nil
	}

	pkgNames := make([]string, len(p.Packages))
	for i, pkg := range p.Packages {
		pkgNames[i] = pkg.Name
	}
	i, err := pick("package", loc[0], pkgNames)
	if err != nil {
		return path, err
	}
	path.Package = i
	if len(loc) == 1 {
		return path, nil
	}

	pkg := p.Packages[i]
	subNames := make([]string, len(pkg.SubPackages))
	for i, sub := range pkg.SubPackages {
		subNames[i] = sub.Name
	}
	if i, err = pick("subpackage", loc[1], subNames); err != nil {
		return path, err
	}
	path.SubPackage = i
	if len(loc) == 2 {
		return path, nil
	}

	sub := pkg.SubPackages[i]
	taskNames := make([]string, len(sub.Tasks))
	for i, t := range sub.Tasks {
		taskNames[i] = t.Name
	}
	if i, err = pick("task", loc[2], taskNames); err != nil {
		return path, err
	}
	path.Task = i
	return path, nil
}

// pick errors wrap workflow.ErrValidation, like a bad path given to the
// service.
func pick(what, arg string, names []string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n >= len(names) {
			return 0, fmt.Errorf("%w: %s index %d out of range [0,%d)", workflow.ErrValidation, what, n, len(names))
		}
		return n, nil
	}
	for i, name := range names {
		if strings.EqualFold(name, arg) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no %s named %q", workflow.ErrValidation, what, arg)
}

// parseLevelArgs checks "<level> [package] [subpackage]" and returns the level.
func parseLevelArgs(args []string) (event.Level, error) {
	level := event.Level(args[0])
	var want int
	switch level {
	case event.LevelSubPackage:
		want = 2
	case event.LevelPackage:
		want = 1
	case event.LevelProject:
		want = 0
	default:
		return "", fmt.Errorf("%w: level must be subpackage, package or project, got %q", workflow.ErrValidation, args[0])
	}
	if got := len(args) - 1; got != want {
		return "", fmt.Errorf("%w: %s needs %d location argument(s), got %d", workflow.ErrValidation, level, want, got)
	}
	return level, nil
}
