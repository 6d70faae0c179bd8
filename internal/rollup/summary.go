package rollup

import "github.com/alexander-akhmetov/wbstrack/internal/domain"

// Counts tallies nodes by status at one level of the tree.
type Counts map[domain.Status]int

// Total returns the number of nodes counted.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Summary holds status tallies for every level below the project.
type Summary struct {
	Tasks       Counts
	SubPackages Counts
	Packages    Counts
}

// Summarize counts statuses across the project. Empty statuses are reported
// as draft.
func Summarize(p *domain.Project) Summary {
	s := Summary{Tasks: Counts{}, SubPackages: Counts{}, Packages: Counts{}}
	for _, pkg := range p.Packages {
		s.Packages[normalize(pkg.Status)]++
		for _, sub := range pkg.SubPackages {
			s.SubPackages[normalize(sub.Status)]++
			for _, t := range sub.Tasks {
				s.Tasks[normalize(t.Status)]++
			}
		}
	}
	return s
}

func normalize(st domain.Status) domain.Status {
	if st == "" {
		return domain.StatusDraft
	}
	return st
}
