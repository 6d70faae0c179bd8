package workflow

import (
	"fmt"
	"time"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/engine"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/lifecycle"
	"github.com/alexander-akhmetov/wbstrack/internal/rollup"
)

// Points configures the task-level rewards. Level rewards live in
// engine.Cascade.Points. A zero value disables that reward.
type Points struct {
	TaskCompletion int
	TaskReview     int
}

// Rules are the tunable parts of the workflow. Its methods are the in-memory
// form of the service operations: they mutate the given tree and return the
// effects to dispatch, without any I/O. On error the tree is left untouched.
type Rules struct {
	Points  Points
	Cascade engine.Cascade
	// AllowResubmitApproved lets SubmitProgress reopen an approved task.
	AllowResubmitApproved bool
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		Points: Points{TaskCompletion: 10, TaskReview: 5},
		Cascade: engine.Cascade{
			Points: engine.Points{SubPackage: 20, Package: 50, Project: 100},
		},
	}
}

// Outcome is what an in-memory operation decided.
type Outcome struct {
	Effects []event.Effect
	// Cascade is set by approving reviews, level resubmissions and by
	// submissions that reopen an approved task.
	Cascade *engine.Decision
}

// Assign sets the task's submitters and reviewers and opens it for work.
func (r Rules) Assign(p *domain.Project, path domain.Path, submitters, reviewers domain.UserSet, now time.Time) (Outcome, error) {
	const op = "assign"
	_, _, t, err := p.Lookup(path)
	if err != nil {
		return Outcome{}, validationErr(op, path.String(), "%w", err)
	}
	submitters = domain.NewUserSet(submitters...)
	reviewers = domain.NewUserSet(reviewers...)
	if submitters.Len() == 0 {
		return Outcome{}, validationErr(op, path.String(), "at least one submitter is required")
	}
	to, err := lifecycle.Transition(t.Status, lifecycle.Input{Trigger: lifecycle.TriggerAssign}, r.lifecycleOptions())
	if err != nil {
		return Outcome{}, transitionErr(op, path.String(), err)
	}

	ts := now
	t.Submitters = submitters
	t.Reviewers = reviewers
	t.Status = to
	t.AssignedAt = &ts
	rollup.Recompute(p)

	payload := event.TaskPayload(p.ID, path, t.Name)
	out := Outcome{}
	out.add(event.Notify(event.KindTaskAssigned, submitters, payload))
	out.add(event.Notify(event.KindReviewAssigned, reviewers, copyPayload(payload)))
	return out, nil
}

// Submit records reported progress. A submission that brings the task to
// 100% moves it to submitted, rewards its submitters and asks its reviewers
// for a review.
func (r Rules) Submit(p *domain.Project, path domain.Path, completed, total int, actor string, now time.Time) (Outcome, error) {
	const op = "submit"
	_, _, t, err := p.Lookup(path)
	if err != nil {
		return Outcome{}, validationErr(op, path.String(), "%w", err)
	}
	if total <= 0 {
		return Outcome{}, validationErr(op, path.String(), "total must be positive, got %d", total)
	}
	if completed < 0 || completed > total {
		return Outcome{}, validationErr(op, path.String(), "completed %d outside [0,%d]", completed, total)
	}

	reachedFull := rollup.Percentage(completed, total) == 100
	from := t.Status
	to, err := lifecycle.Transition(from, lifecycle.Input{Trigger: lifecycle.TriggerSubmit, ReachedFull: reachedFull}, r.lifecycleOptions())
	if err != nil {
		return Outcome{}, transitionErr(op, path.String(), err)
	}

	out := Outcome{}
	if from == domain.StatusApproved {
		// Resolve fails before touching the tree, so p is still intact on error.
		d, err := engine.Reopen(p, path)
		if err != nil {
			return Outcome{}, validationErr(op, path.String(), "reopen: %w", err)
		}
		out.Cascade = &d
		out.add(d.Effects...)
		t.ApprovedAt, t.ApprovedBy = nil, ""
	}

	t.Completed = completed
	t.Total = total
	t.Status = to
	justSubmitted := to == domain.StatusSubmitted && from != domain.StatusSubmitted
	if justSubmitted {
		ts := now
		t.SubmittedAt = &ts
		t.SubmittedBy = actor
	}
	rollup.Recompute(p)

	if !justSubmitted {
		return out, nil
	}
	payload := event.TaskPayload(p.ID, path, t.Name)
	if r.Points.TaskCompletion > 0 {
		out.add(event.Reward(event.KindTaskCompleted, t.Submitters, r.Points.TaskCompletion,
			fmt.Sprintf("task %q completed", t.Name), payload))
	}
	requested := copyPayload(payload)
	requested["submittedBy"] = actor
	out.add(event.Notify(event.KindReviewRequested, t.Reviewers, requested))
	return out, nil
}

// Review approves or rejects a submitted task. The reviewer is rewarded, an
// approval runs the cascade, and submitters are told the outcome.
func (r Rules) Review(p *domain.Project, path domain.Path, approved bool, actor, comment string, now time.Time) (Outcome, error) {
	const op = "review"
	_, _, t, err := p.Lookup(path)
	if err != nil {
		return Outcome{}, validationErr(op, path.String(), "%w", err)
	}
	trigger := lifecycle.TriggerReject
	if approved {
		trigger = lifecycle.TriggerApprove
	}
	to, err := lifecycle.Transition(t.Status, lifecycle.Input{Trigger: trigger}, r.lifecycleOptions())
	if err != nil {
		return Outcome{}, transitionErr(op, path.String(), err)
	}

	// The cascade can still fail on a malformed tree, so it runs on a copy
	// and the result is only kept when it succeeds.
	work := p.Clone()
	_, _, wt, _ := work.Lookup(path)
	ts := now
	wt.Status = to
	wt.ReviewedAt = &ts
	wt.ReviewedBy = actor
	wt.ReviewComment = comment
	if approved {
		wt.ApprovedAt = &ts
		wt.ApprovedBy = actor
	}
	rollup.Recompute(work)

	out := Outcome{}
	payload := event.TaskPayload(p.ID, path, t.Name)
	if r.Points.TaskReview > 0 && actor != "" {
		out.add(event.Reward(event.KindTaskReviewed, domain.NewUserSet(actor), r.Points.TaskReview,
			fmt.Sprintf("reviewed task %q", t.Name), payload))
	}
	if approved {
		d, err := r.Cascade.Decide(work, event.LevelSubPackage, path, actor, now)
		if err != nil {
			return Outcome{}, validationErr(op, path.String(), "cascade: %w", err)
		}
		out.Cascade = &d
		out.add(d.Effects...)
	}
	result := copyPayload(payload)
	result["approved"] = approved
	result["reviewedBy"] = actor
	if comment != "" {
		result["comment"] = comment
	}
	out.add(event.Notify(event.KindReviewResult, wt.Submitters, result))

	*p = *work
	return out, nil
}

// ReviewLevel approves or rejects a submitted subpackage, package or project.
// Participants are told the outcome, and an approval continues the cascade
// from the parent level.
func (r Rules) ReviewLevel(p *domain.Project, level event.Level, path domain.Path, approved bool, actor, comment string, now time.Time) (Outcome, error) {
	const op = "review-level"
	where := levelPath(level, path)
	if level != event.LevelSubPackage && level != event.LevelPackage && level != event.LevelProject {
		return Outcome{}, validationErr(op, where, "unknown level %q", level)
	}

	work := p.Clone()
	node, err := engine.Resolve(work, level, path)
	if err != nil {
		return Outcome{}, validationErr(op, where, "%w", err)
	}
	trigger := lifecycle.TriggerReject
	if approved {
		trigger = lifecycle.TriggerApprove
	}
	to, err := lifecycle.Transition(*node.Status, lifecycle.Input{Trigger: trigger}, lifecycle.Options{})
	if err != nil {
		return Outcome{}, transitionErr(op, where, err)
	}

	*node.Status = to
	if approved {
		ts := now
		*node.ApprovedAt = &ts
		*node.ApprovedBy = actor
	}

	out := Outcome{}
	payload := event.LevelPayload(p.ID, level, node.Path, node.Name)
	payload["approved"] = approved
	payload["reviewedBy"] = actor
	if comment != "" {
		payload["comment"] = comment
	}
	out.add(event.Notify(event.KindLevelReviewResult, node.Participants, payload))

	if parent := engine.Parent(level); approved && parent != "" {
		d, err := r.Cascade.Decide(work, parent, path, actor, now)
		if err != nil {
			return Outcome{}, validationErr(op, where, "cascade: %w", err)
		}
		out.Cascade = &d
		out.add(d.Effects...)
	}

	*p = *work
	return out, nil
}

// ResubmitLevel sends a rejected subpackage, package or project back to its
// reviewers. Every child must still be approved; the completion reward was
// paid when the level first completed and is not paid again.
func (r Rules) ResubmitLevel(p *domain.Project, level event.Level, path domain.Path, actor string, now time.Time) (Outcome, error) {
	const op = "resubmit-level"
	where := levelPath(level, path)
	if level != event.LevelSubPackage && level != event.LevelPackage && level != event.LevelProject {
		return Outcome{}, validationErr(op, where, "unknown level %q", level)
	}

	work := p.Clone()
	node, err := engine.Resolve(work, level, path)
	if err != nil {
		return Outcome{}, validationErr(op, where, "%w", err)
	}
	if _, err := lifecycle.Transition(*node.Status, lifecycle.Input{Trigger: lifecycle.TriggerResubmit}, lifecycle.Options{}); err != nil {
		return Outcome{}, transitionErr(op, where, err)
	}
	if !node.AllChildrenApproved(r.Cascade.AllowEmptyLevels) {
		return Outcome{}, validationErr(op, where, "%s %q has children that are not approved", level, node.Name)
	}

	d, err := r.Cascade.Decide(work, level, path, actor, now)
	if err != nil {
		return Outcome{}, validationErr(op, where, "cascade: %w", err)
	}
	if !d.Promoted(level) {
		return Outcome{}, validationErr(op, where, "%s %q has no reviewers", level, node.Name)
	}

	out := Outcome{Cascade: &d}
	out.add(d.Effects...)
	*p = *work
	return out, nil
}

func (r Rules) lifecycleOptions() lifecycle.Options {
	return lifecycle.Options{AllowResubmitApproved: r.AllowResubmitApproved}
}

// add appends effects that reach at least one user.
func (o *Outcome) add(effects ...event.Effect) {
	for _, e := range effects {
		if !e.Empty() {
			o.Effects = append(o.Effects, e)
		}
	}
}

func copyPayload(p map[string]any) map[string]any {
	cp := make(map[string]any, len(p)+2)
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

func levelPath(level event.Level, path domain.Path) string {
	switch level {
	case event.LevelSubPackage:
		return fmt.Sprintf("%s %d/%d", level, path.Package, path.SubPackage)
	case event.LevelPackage:
		return fmt.Sprintf("%s %d", level, path.Package)
	}
	return string(level)
}
