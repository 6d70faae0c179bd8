// Package lifecycle encodes the legal status transitions of a single task.
// All task status changes go through Transition so that an illegal change
// fails with a TransitionError instead of silently corrupting state.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
)

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// Trigger is the workflow action attempting to move a task.
type Trigger string

const (
	// TriggerAssign sets submitters/reviewers and opens the task for work.
	TriggerAssign Trigger = "assign"
	// TriggerSubmit records reported progress.
	TriggerSubmit Trigger = "submit"
	// TriggerApprove accepts a submitted task.
	TriggerApprove Trigger = "approve"
	// TriggerReject sends a submitted task back to its submitters.
	TriggerReject Trigger = "reject"
	// TriggerPromote submits a subpackage, package or project whose children
	// are all approved. It is never applied to tasks.
	TriggerPromote Trigger = "promote"
	// TriggerResubmit sends a rejected level back for review. Levels only.
	TriggerResubmit Trigger = "resubmit"
	// TriggerReopen moves a level back to in-progress after one of its
	// children left approved. Levels only.
	TriggerReopen Trigger = "reopen"
)

// TransitionError reports a trigger that is not legal from the current status.
type TransitionError struct {
	From    domain.Status
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %s", e.Trigger, describe(e.From))
}

// Is reports whether target is ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Options tunes guards that the workflow leaves configurable.
type Options struct {
	// AllowResubmitApproved lets submitters reopen an approved task.
	AllowResubmitApproved bool
}

// Input carries the trigger and the facts its guards need.
type Input struct {
	Trigger Trigger
	// ReachedFull is true when a submission brings the task to 100%.
	ReachedFull bool
}

// Transition returns the status a task moves to when in is applied from
// status from, or a *TransitionError when the move is not allowed.
func Transition(from domain.Status, in Input, opts Options) (domain.Status, error) {
	if from == "" {
		from = domain.StatusDraft
	}
	if !from.Valid() {
		return from, &TransitionError{From: from, Trigger: in.Trigger}
	}

	switch in.Trigger {
	case TriggerAssign:
		switch from {
		case domain.StatusDraft, domain.StatusInProgress, domain.StatusRejected:
			return domain.StatusInProgress, nil
		}

	case TriggerSubmit:
		if from == domain.StatusApproved && !opts.AllowResubmitApproved {
			break
		}
		if in.ReachedFull {
			return domain.StatusSubmitted, nil
		}
		return domain.StatusInProgress, nil

	case TriggerApprove:
		if from == domain.StatusSubmitted {
			return domain.StatusApproved, nil
		}

	case TriggerReject:
		if from == domain.StatusSubmitted {
			return domain.StatusRejected, nil
		}

	case TriggerPromote:
		switch from {
		case domain.StatusDraft, domain.StatusInProgress, domain.StatusRejected:
			return domain.StatusSubmitted, nil
		}

	case TriggerResubmit:
		if from == domain.StatusRejected {
			return domain.StatusSubmitted, nil
		}

	case TriggerReopen:
		switch from {
		case domain.StatusSubmitted, domain.StatusApproved, domain.StatusRejected:
			return domain.StatusInProgress, nil
		}
	}

	return from, &TransitionError{From: from, Trigger: in.Trigger}
}

func describe(s domain.Status) string {
	if s.Valid() {
		return string(s)
	}
	return fmt.Sprintf("unknown status %q", string(s))
}
