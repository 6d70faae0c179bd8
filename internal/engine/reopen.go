package engine

import (
	"fmt"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/lifecycle"
)

// Reopen is the inverse walk of Decide, for a task at path that just left
// approved. Every ancestor that is submitted, approved or rejected no longer
// has all of its children approved, so it goes back to in-progress with its
// submission and approval stamps cleared and its reviewers notified.
// CompletedAt is kept: the completion reward is not paid twice.
func Reopen(p *domain.Project, path domain.Path) (Decision, error) {
	var d Decision
	for level := event.LevelSubPackage; level != ""; level = Parent(level) {
		node, err := Resolve(p, level, path)
		if err != nil {
			return d, err
		}
		from := *node.Status
		if from == "" || from == domain.StatusDraft || from == domain.StatusInProgress {
			continue
		}
		to, err := lifecycle.Transition(from, lifecycle.Input{Trigger: lifecycle.TriggerReopen}, lifecycle.Options{})
		if err != nil {
			return d, fmt.Errorf("reopen %s %q: %w", level, node.Name, err)
		}

		*node.Status = to
		*node.SubmittedAt, *node.SubmittedBy = nil, ""
		*node.ApprovedAt, *node.ApprovedBy = nil, ""

		d.Reopened = append(d.Reopened, Reopening{Level: level, Path: node.Path, Name: node.Name, From: from})
		if node.Reviewers.Len() > 0 {
			d.Effects = append(d.Effects, event.Notify(event.KindLevelReopened, node.Reviewers,
				event.LevelPayload(p.ID, level, node.Path, node.Name)))
		}
	}
	return d, nil
}
