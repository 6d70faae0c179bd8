// Package domain defines the work breakdown structure shared across wbstrack:
// Project, Package, SubPackage, Task, and their helper methods.
package domain

import (
	"fmt"
	"time"
)

// Status is the workflow status of a task or of an aggregate level.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in-progress"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Task is a leaf unit of work with a submitter/reviewer workflow.
type Task struct {
	Name      string `json:"name" yaml:"name"`
	Completed int    `json:"completed" yaml:"completed"`
	Total     int    `json:"total" yaml:"total"`
	Progress  int    `json:"progress" yaml:"progress"`
	Status    Status `json:"status" yaml:"status"`

	Submitters UserSet `json:"submitters,omitempty" yaml:"submitters,omitempty"`
	Reviewers  UserSet `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`

	AssignedAt    *time.Time `json:"assignedAt,omitempty" yaml:"assigned_at,omitempty"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty" yaml:"submitted_at,omitempty"`
	SubmittedBy   string     `json:"submittedBy,omitempty" yaml:"submitted_by,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty" yaml:"approved_at,omitempty"`
	ApprovedBy    string     `json:"approvedBy,omitempty" yaml:"approved_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewedAt,omitempty" yaml:"reviewed_at,omitempty"`
	ReviewedBy    string     `json:"reviewedBy,omitempty" yaml:"reviewed_by,omitempty"`
	ReviewComment string     `json:"reviewComment,omitempty" yaml:"review_comment,omitempty"`
}

// Participants returns submitters ∪ reviewers.
func (t *Task) Participants() UserSet {
	return t.Submitters.Union(t.Reviewers)
}

// SubPackage groups tasks. Its progress fields are derived from its tasks.
type SubPackage struct {
	Name      string  `json:"name" yaml:"name"`
	Tasks     []*Task `json:"taskpackages" yaml:"tasks"`
	Completed int     `json:"completed" yaml:"completed"`
	Total     int     `json:"total" yaml:"total"`
	Progress  int     `json:"progress" yaml:"progress"`
	Status    Status  `json:"status" yaml:"status"`
	Reviewers UserSet `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty" yaml:"submitted_at,omitempty"`
	SubmittedBy string     `json:"submittedBy,omitempty" yaml:"submitted_by,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty" yaml:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty" yaml:"approved_by,omitempty"`
	// CompletedAt is set the first time every child is approved. The level
	// completion reward is paid only then.
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
}

// AllTasksApproved returns true if the subpackage has tasks and every one is approved.
func (s *SubPackage) AllTasksApproved() bool {
	for _, t := range s.Tasks {
		if t.Status != StatusApproved {
			return false
		}
	}
	return len(s.Tasks) > 0
}

// Participants returns the union of all task participants in the subpackage.
func (s *SubPackage) Participants() UserSet {
	var set UserSet
	for _, t := range s.Tasks {
		set = set.Union(t.Participants())
	}
	return set
}

// Package groups subpackages.
type Package struct {
	Name        string        `json:"name" yaml:"name"`
	SubPackages []*SubPackage `json:"subpackages" yaml:"subpackages"`
	Completed   int           `json:"completed" yaml:"completed"`
	Total       int           `json:"total" yaml:"total"`
	Progress    int           `json:"progress" yaml:"progress"`
	Status      Status        `json:"status" yaml:"status"`
	Reviewers   UserSet       `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty" yaml:"submitted_at,omitempty"`
	SubmittedBy string     `json:"submittedBy,omitempty" yaml:"submitted_by,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty" yaml:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty" yaml:"approved_by,omitempty"`
	// CompletedAt is set the first time every child is approved. The level
	// completion reward is paid only then.
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
}

// AllSubPackagesApproved returns true if the package has subpackages and every one is approved.
func (p *Package) AllSubPackagesApproved() bool {
	for _, s := range p.SubPackages {
		if s.Status != StatusApproved {
			return false
		}
	}
	return len(p.SubPackages) > 0
}

// Participants returns the union of all task participants nested in the package.
func (p *Package) Participants() UserSet {
	var set UserSet
	for _, s := range p.SubPackages {
		set = set.Union(s.Participants())
	}
	return set
}

// Project is the root aggregate of a work breakdown structure.
type Project struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Packages  []*Package `json:"packages" yaml:"packages"`
	Completed int        `json:"completed" yaml:"completed"`
	Total     int        `json:"total" yaml:"total"`
	Progress  int        `json:"progress" yaml:"progress"`
	Status    Status     `json:"status" yaml:"status"`
	Reviewers UserSet    `json:"reviewers,omitempty" yaml:"reviewers,omitempty"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty" yaml:"submitted_at,omitempty"`
	SubmittedBy string     `json:"submittedBy,omitempty" yaml:"submitted_by,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty" yaml:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty" yaml:"approved_by,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`

	// Version is bumped by the store on every successful save.
	Version   int64     `json:"version" yaml:"version"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// AllPackagesApproved returns true if the project has packages and every one is approved.
func (p *Project) AllPackagesApproved() bool {
	for _, pkg := range p.Packages {
		if pkg.Status != StatusApproved {
			return false
		}
	}
	return len(p.Packages) > 0
}

// Participants returns the union of every task participant in the project.
func (p *Project) Participants() UserSet {
	var set UserSet
	for _, pkg := range p.Packages {
		set = set.Union(pkg.Participants())
	}
	return set
}

// Path addresses a task by its package, subpackage and task indices.
type Path struct {
	Package    int `json:"packageIndex"`
	SubPackage int `json:"subpackageIndex"`
	Task       int `json:"taskIndex"`
}

func (p Path) String() string {
	return fmt.Sprintf("%d/%d/%d", p.Package, p.SubPackage, p.Task)
}

// Lookup resolves a path to the task and its ancestors.
// It returns an error naming the first index that is out of range.
func (p *Project) Lookup(path Path) (*Package, *SubPackage, *Task, error) {
	if path.Package < 0 || path.Package >= len(p.Packages) {
		return nil, nil, nil, fmt.Errorf("package index %d out of range [0,%d)", path.Package, len(p.Packages))
	}
	pkg := p.Packages[path.Package]
	if path.SubPackage < 0 || path.SubPackage >= len(pkg.SubPackages) {
		return nil, nil, nil, fmt.Errorf("subpackage index %d out of range [0,%d)", path.SubPackage, len(pkg.SubPackages))
	}
	sub := pkg.SubPackages[path.SubPackage]
	if path.Task < 0 || path.Task >= len(sub.Tasks) {
		return nil, nil, nil, fmt.Errorf("task index %d out of range [0,%d)", path.Task, len(sub.Tasks))
	}
	return pkg, sub, sub.Tasks[path.Task], nil
}

// TaskCount returns the number of tasks in the whole tree.
func (p *Project) TaskCount() int {
	n := 0
	for _, pkg := range p.Packages {
		for _, sub := range pkg.SubPackages {
			n += len(sub.Tasks)
		}
	}
	return n
}

// Clone returns a deep copy of the project tree.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Reviewers = p.Reviewers.Clone()
	cp.SubmittedAt = cloneTime(p.SubmittedAt)
	cp.ApprovedAt = cloneTime(p.ApprovedAt)
	cp.CompletedAt = cloneTime(p.CompletedAt)
	if p.Packages != nil {
		cp.Packages = make([]*Package, len(p.Packages))
		for i, pkg := range p.Packages {
			cp.Packages[i] = pkg.clone()
		}
	}
	return &cp
}

func (p *Package) clone() *Package {
	cp := *p
	cp.Reviewers = p.Reviewers.Clone()
	cp.SubmittedAt = cloneTime(p.SubmittedAt)
	cp.ApprovedAt = cloneTime(p.ApprovedAt)
	cp.CompletedAt = cloneTime(p.CompletedAt)
	if p.SubPackages != nil {
		cp.SubPackages = make([]*SubPackage, len(p.SubPackages))
		for i, sub := range p.SubPackages {
			cp.SubPackages[i] = sub.clone()
		}
	}
	return &cp
}

func (s *SubPackage) clone() *SubPackage {
	cp := *s
	cp.Reviewers = s.Reviewers.Clone()
	cp.SubmittedAt = cloneTime(s.SubmittedAt)
	cp.ApprovedAt = cloneTime(s.ApprovedAt)
	cp.CompletedAt = cloneTime(s.CompletedAt)
	if s.Tasks == nil {
		return &cp
	}
	cp.Tasks = make([]*Task, len(s.Tasks))
	for i, t := range s.Tasks {
		tc := *t
		tc.Submitters = t.Submitters.Clone()
		tc.Reviewers = t.Reviewers.Clone()
		tc.AssignedAt = cloneTime(t.AssignedAt)
		tc.SubmittedAt = cloneTime(t.SubmittedAt)
		tc.ApprovedAt = cloneTime(t.ApprovedAt)
		tc.ReviewedAt = cloneTime(t.ReviewedAt)
		cp.Tasks[i] = &tc
	}
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
