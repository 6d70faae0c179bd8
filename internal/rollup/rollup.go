// Package rollup computes completion percentages and rolls task progress up
// the project tree. Every function here is pure apart from writing the derived
// progress fields of the tree it is given.
package rollup

import "github.com/alexander-akhmetov/wbstrack/internal/domain"

// Percentage returns completed/total as a whole percentage rounded half-up.
// A zero (or negative) total yields 0.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (completed*200 + total) / (2 * total)
}

// EffectiveCompleted is the amount a task contributes to its ancestors:
// its completed count once approved, zero otherwise.
func EffectiveCompleted(t *domain.Task) int {
	if t.Status == domain.StatusApproved {
		return t.Completed
	}
	return 0
}

// Recompute performs a single bottom-up pass over the project, rewriting the
// progress of every task and the completed/total/progress of every
// subpackage, package and the project itself.
//
// A task's own progress reflects what its submitters reported, while
// ancestors only count EffectiveCompleted. Task completed/total values are
// left as submitted. Calling Recompute twice yields the same tree.
func Recompute(p *domain.Project) {
	p.Completed, p.Total = 0, 0
	for _, pkg := range p.Packages {
		pkg.Completed, pkg.Total = 0, 0
		for _, sub := range pkg.SubPackages {
			sub.Completed, sub.Total = 0, 0
			for _, t := range sub.Tasks {
				t.Progress = Percentage(t.Completed, t.Total)
				sub.Completed += EffectiveCompleted(t)
				sub.Total += t.Total
			}
			sub.Progress = Percentage(sub.Completed, sub.Total)
			pkg.Completed += sub.Completed
			pkg.Total += sub.Total
		}
		pkg.Progress = Percentage(pkg.Completed, pkg.Total)
		p.Completed += pkg.Completed
		p.Total += pkg.Total
	}
	p.Progress = Percentage(p.Completed, p.Total)
}
