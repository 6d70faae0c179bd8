// Package event defines the typed side effects produced by workflow
// decisions: notifications to users and rewards for participants. Decisions
// return Effects; a dispatcher executes them after the project is saved.
package event

import "github.com/alexander-akhmetov/wbstrack/internal/domain"

// Kind identifies the type of effect.
type Kind string

// Notification kinds.
const (
	// KindTaskAssigned tells submitters they were assigned a task.
	KindTaskAssigned Kind = "task_assigned"
	// KindReviewAssigned tells reviewers they will review a task.
	KindReviewAssigned Kind = "review_assigned"
	// KindReviewRequested tells reviewers a task reached 100% and awaits review.
	KindReviewRequested Kind = "review_requested"
	// KindReviewResult tells submitters their task was approved or rejected.
	KindReviewResult Kind = "review_result"
	// KindLevelSubmitted tells level reviewers a subpackage, package or project awaits review.
	KindLevelSubmitted Kind = "level_submitted"
	// KindLevelReviewResult tells participants a level review outcome.
	KindLevelReviewResult Kind = "level_review_result"
	// KindLevelReopened tells level reviewers a submitted or approved level
	// is back in progress because one of its tasks was reopened.
	KindLevelReopened Kind = "level_reopened"
)

// Reward kinds.
const (
	// KindTaskCompleted rewards submitters whose task reached 100%.
	KindTaskCompleted Kind = "task_completed"
	// KindTaskReviewed rewards the reviewer of a task.
	KindTaskReviewed Kind = "task_reviewed"
	// KindLevelCompleted rewards every participant of a completed level.
	KindLevelCompleted Kind = "level_completed"
)

// IsReward reports whether k is paid out through the reward dispatcher.
func (k Kind) IsReward() bool {
	switch k {
	case KindTaskCompleted, KindTaskReviewed, KindLevelCompleted:
		return true
	}
	return false
}

// Level names a node depth in the project tree.
type Level string

const (
	LevelTask       Level = "task"
	LevelSubPackage Level = "subpackage"
	LevelPackage    Level = "package"
	LevelProject    Level = "project"
)

// Effect is a single notification or reward to dispatch.
type Effect struct {
	Kind    Kind
	Targets []string // user ids, de-duplicated
	Points  int      // rewards only
	Reason  string   // rewards only
	Payload map[string]any
}

// Notify builds a notification effect.
func Notify(kind Kind, targets domain.UserSet, payload map[string]any) Effect {
	return Effect{Kind: kind, Targets: targets.Slice(), Payload: payload}
}

// Reward builds a reward effect.
func Reward(kind Kind, targets domain.UserSet, points int, reason string, payload map[string]any) Effect {
	return Effect{Kind: kind, Targets: targets.Slice(), Points: points, Reason: reason, Payload: payload}
}

// Empty reports whether the effect has nobody to reach.
func (e Effect) Empty() bool {
	return len(e.Targets) == 0
}

// TaskPayload is the common payload describing a task location.
func TaskPayload(projectID string, path domain.Path, taskName string) map[string]any {
	return map[string]any{
		"projectId":       projectID,
		"packageIndex":    path.Package,
		"subpackageIndex": path.SubPackage,
		"taskIndex":       path.Task,
		"taskName":        taskName,
	}
}

// LevelPayload is the common payload describing a level location.
// Indices that do not apply to level are omitted.
func LevelPayload(projectID string, level Level, path domain.Path, name string) map[string]any {
	p := map[string]any{
		"projectId": projectID,
		"level":     string(level),
		"name":      name,
	}
	switch level {
	case LevelSubPackage:
		p["packageIndex"] = path.Package
		p["subpackageIndex"] = path.SubPackage
	case LevelPackage:
		p["packageIndex"] = path.Package
	}
	return p
}
