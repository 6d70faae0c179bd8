// Package engine implements the cascade decision for aggregate levels. After a
// task (or a level) is approved, the engine walks upward and decides which
// subpackage, package or project has every child approved, which of them must
// be submitted for review, and which rewards and notifications follow. The
// engine performs no I/O: it returns Effect values for a dispatcher to execute.
package engine

import (
	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
)

// Promotion records a level moving to submitted.
type Promotion struct {
	Level event.Level
	Path  domain.Path
	Name  string
	From  domain.Status
}

// Reopening records a level moved back to in-progress.
type Reopening struct {
	Level event.Level
	Path  domain.Path
	Name  string
	From  domain.Status
}

// Completion records a level whose children became all approved for the
// first time.
type Completion struct {
	Level        event.Level
	Path         domain.Path
	Name         string
	Participants domain.UserSet
}

// Decision is the outcome of a cascade walk. The tree passed to Decide has
// already been updated to match Promotions.
type Decision struct {
	Completions []Completion
	Promotions  []Promotion
	Reopened    []Reopening
	// Effects lists rewards and notifications in the order they were decided.
	Effects []event.Effect
}

// Promoted reports whether level was promoted during the walk.
func (d Decision) Promoted(level event.Level) bool {
	for _, p := range d.Promotions {
		if p.Level == level {
			return true
		}
	}
	return false
}
