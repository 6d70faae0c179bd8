package engine

import (
	"fmt"
	"time"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/event"
)

// Node is a uniform view over a subpackage, package or project so the cascade
// can treat every aggregate level the same way. Field pointers alias the
// underlying tree.
type Node struct {
	Level event.Level
	Path  domain.Path
	Name  string

	Status      *domain.Status
	Reviewers   domain.UserSet
	SubmittedAt **time.Time
	SubmittedBy *string
	ApprovedAt  **time.Time
	ApprovedBy  *string
	CompletedAt **time.Time

	// ChildStatuses lists the statuses of the node's direct children.
	ChildStatuses []domain.Status
	// Participants is submitters ∪ reviewers over every nested task.
	Participants domain.UserSet
}

// AllChildrenApproved reports whether every direct child is approved.
// A node without children only qualifies when allowEmpty is set.
func (n *Node) AllChildrenApproved(allowEmpty bool) bool {
	if len(n.ChildStatuses) == 0 {
		return allowEmpty
	}
	for _, s := range n.ChildStatuses {
		if s != domain.StatusApproved {
			return false
		}
	}
	return true
}

// Resolve returns the aggregate node at level. For LevelSubPackage both
// path.Package and path.SubPackage are used; for LevelPackage only
// path.Package; LevelProject ignores path.
func Resolve(p *domain.Project, level event.Level, path domain.Path) (*Node, error) {
	switch level {
	case event.LevelProject:
		n := &Node{
			Level:       level,
			Name:        p.Name,
			Status:      &p.Status,
			Reviewers:   p.Reviewers,
			SubmittedAt: &p.SubmittedAt,
			SubmittedBy: &p.SubmittedBy,
			ApprovedAt:  &p.ApprovedAt,
			ApprovedBy:  &p.ApprovedBy,
			CompletedAt: &p.CompletedAt,
		}
		for _, pkg := range p.Packages {
			n.ChildStatuses = append(n.ChildStatuses, pkg.Status)
		}
		n.Participants = p.Participants()
		return n, nil

	case event.LevelPackage:
		if path.Package < 0 || path.Package >= len(p.Packages) {
			return nil, fmt.Errorf("package index %d out of range [0,%d)", path.Package, len(p.Packages))
		}
		pkg := p.Packages[path.Package]
		n := &Node{
			Level:       level,
			Path:        domain.Path{Package: path.Package},
			Name:        pkg.Name,
			Status:      &pkg.Status,
			Reviewers:   pkg.Reviewers,
			SubmittedAt: &pkg.SubmittedAt,
			SubmittedBy: &pkg.SubmittedBy,
			ApprovedAt:  &pkg.ApprovedAt,
			ApprovedBy:  &pkg.ApprovedBy,
			CompletedAt: &pkg.CompletedAt,
		}
		for _, sub := range pkg.SubPackages {
			n.ChildStatuses = append(n.ChildStatuses, sub.Status)
		}
		n.Participants = pkg.Participants()
		return n, nil

	case event.LevelSubPackage:
		if path.Package < 0 || path.Package >= len(p.Packages) {
			return nil, fmt.Errorf("package index %d out of range [0,%d)", path.Package, len(p.Packages))
		}
		pkg := p.Packages[path.Package]
		if path.SubPackage < 0 || path.SubPackage >= len(pkg.SubPackages) {
			return nil, fmt.Errorf("subpackage index %d out of range [0,%d)", path.SubPackage, len(pkg.SubPackages))
		}
		sub := pkg.SubPackages[path.SubPackage]
		n := &Node{
			Level:       level,
			Path:        domain.Path{Package: path.Package, SubPackage: path.SubPackage},
			Name:        sub.Name,
			Status:      &sub.Status,
			Reviewers:   sub.Reviewers,
			SubmittedAt: &sub.SubmittedAt,
			SubmittedBy: &sub.SubmittedBy,
			ApprovedAt:  &sub.ApprovedAt,
			ApprovedBy:  &sub.ApprovedBy,
			CompletedAt: &sub.CompletedAt,
		}
		for _, t := range sub.Tasks {
			n.ChildStatuses = append(n.ChildStatuses, t.Status)
		}
		n.Participants = sub.Participants()
		return n, nil
	}
	return nil, fmt.Errorf("unknown level %q", level)
}

// Parent returns the level above l, or "" for the project.
func Parent(l event.Level) event.Level {
	switch l {
	case event.LevelTask:
		return event.LevelSubPackage
	case event.LevelSubPackage:
		return event.LevelPackage
	case event.LevelPackage:
		return event.LevelProject
	}
	return ""
}
