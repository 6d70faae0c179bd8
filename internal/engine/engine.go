package engine

import (
	"fmt"
	"time"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
	"github.com/alexander-akhmetov/wbstrack/internal/lifecycle"
)

// Points configures the reward paid to every participant of a completed level.
// A zero value disables the reward for that level.
type Points struct {
	SubPackage int
	Package    int
	Project    int
}

func (p Points) forLevel(l event.Level) int {
	switch l {
	case event.LevelSubPackage:
		return p.SubPackage
	case event.LevelPackage:
		return p.Package
	case event.LevelProject:
		return p.Project
	}
	return 0
}

// Cascade decides level completions and promotions.
type Cascade struct {
	// AllowEmptyLevels makes a level with no children count as complete.
	// Off by default: an empty level never cascades.
	AllowEmptyLevels bool
	Points           Points
}

// Decide walks upward from start (the level that owns the node that was just
// approved) and applies the cascade to p:
//
//  1. If every direct child of the current level is approved, the level is
//     complete. The first time that happens its participants are rewarded
//     and CompletedAt is stamped; a level reached again after a reopen or a
//     rejection pays nothing.
//  2. A complete level with reviewers that is not already submitted or
//     approved is promoted to submitted and its reviewers are notified.
//  3. The walk continues to the parent only while the current level is
//     approved. Promotion alone never approves a level.
//
// path locates the start level (see Resolve). actor and now stamp promotions.
func (c Cascade) Decide(p *domain.Project, start event.Level, path domain.Path, actor string, now time.Time) (Decision, error) {
	var d Decision

	for level := start; level != ""; level = Parent(level) {
		node, err := Resolve(p, level, path)
		if err != nil {
			return d, err
		}
		if !node.AllChildrenApproved(c.AllowEmptyLevels) {
			break
		}

		if *node.CompletedAt == nil {
			c.complete(p, node, now, &d)
		}

		if err := c.promote(p, node, actor, now, &d); err != nil {
			return d, err
		}

		if *node.Status != domain.StatusApproved {
			break
		}
	}
	return d, nil
}

func (c Cascade) complete(p *domain.Project, node *Node, now time.Time, d *Decision) {
	ts := now
	*node.CompletedAt = &ts
	d.Completions = append(d.Completions, Completion{
		Level:        node.Level,
		Path:         node.Path,
		Name:         node.Name,
		Participants: node.Participants,
	})
	if pts := c.Points.forLevel(node.Level); pts > 0 && node.Participants.Len() > 0 {
		d.Effects = append(d.Effects, event.Reward(
			event.KindLevelCompleted,
			node.Participants,
			pts,
			fmt.Sprintf("%s %q completed", node.Level, node.Name),
			event.LevelPayload(p.ID, node.Level, node.Path, node.Name),
		))
	}
}

func (c Cascade) promote(p *domain.Project, node *Node, actor string, now time.Time, d *Decision) error {
	if node.Reviewers.Len() == 0 {
		return nil
	}
	from := *node.Status
	if from == domain.StatusSubmitted || from == domain.StatusApproved {
		return nil
	}
	to, err := lifecycle.Transition(from, lifecycle.Input{Trigger: lifecycle.TriggerPromote}, lifecycle.Options{})
	if err != nil {
		return fmt.Errorf("promote %s %q: %w", node.Level, node.Name, err)
	}

	ts := now
	*node.Status = to
	*node.SubmittedAt = &ts
	*node.SubmittedBy = actor

	d.Promotions = append(d.Promotions, Promotion{Level: node.Level, Path: node.Path, Name: node.Name, From: from})
	payload := event.LevelPayload(p.ID, node.Level, node.Path, node.Name)
	payload["submittedBy"] = actor
	d.Effects = append(d.Effects, event.Notify(event.KindLevelSubmitted, node.Reviewers, payload))
	return nil
}
