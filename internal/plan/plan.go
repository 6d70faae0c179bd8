// Package plan imports a work breakdown structure from a markdown outline and
// renders a project back to the same format.
//
//	# Project: Tower A
//	Reviewers: erin
//
//	## Package: Structure
//	Reviewers: dave
//
//	### SubPackage: Foundations
//	Reviewers: carol
//	- [ ] Excavate (total: 10) @submitter:alice @reviewer:rita
//	- [x] Survey (total: 2)
//
// A checked task is imported as approved with completed equal to total. A
// task with submitters starts in progress, otherwise in draft. A missing
// total defaults to 1.
package plan

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/rollup"
)

var (
	projectRegex   = regexp.MustCompile(`^#\s+(?:Project:\s*)?(.+)$`)
	packageRegex   = regexp.MustCompile(`^##\s+(?:Package:\s*)?(.+)$`)
	subRegex       = regexp.MustCompile(`^###\s+(?:Sub-?[Pp]ackage:\s*)?(.+)$`)
	taskRegex      = regexp.MustCompile(`^[-*]\s+\[([ xX])\]\s+(.+)$`)
	reviewersRegex = regexp.MustCompile(`(?i)^reviewers:\s*(.*)$`)
	attrsRegex     = regexp.MustCompile(`\(([^()]*)\)`)
	mentionRegex   = regexp.MustCompile(`@(submitter|reviewer):([\w.\-]+)`)
	slugRegex      = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParseError reports a malformed outline line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseFile reads an outline from disk. The project id is the file name
// without extension unless id is non-empty.
func ParseFile(filePath, id string) (*domain.Project, error) {
	content, err := os.ReadFile(filePath) //nolint:gosec // user's plan file
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	if id == "" {
		base := filepath.Base(filePath)
		id = Slug(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	return Parse(id, string(content))
}

// Parse builds a project from outline content. An empty id is derived from
// the project title.
func Parse(id, content string) (*domain.Project, error) {
	var (
		p   *domain.Project
		pkg *domain.Package
		sub *domain.SubPackage
		// reviewers lines attach to the most recent heading
		target *domain.UserSet
	)

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Order matters: ### before ## before #.
		switch {
		case subRegex.MatchString(line):
			if pkg == nil {
				return nil, &ParseError{Line: lineNo, Msg: "subpackage outside a package"}
			}
			sub = &domain.SubPackage{Name: subRegex.FindStringSubmatch(line)[1], Status: domain.StatusDraft}
			pkg.SubPackages = append(pkg.SubPackages, sub)
			target = &sub.Reviewers

		case packageRegex.MatchString(line):
			if p == nil {
				return nil, &ParseError{Line: lineNo, Msg: "package before the project title"}
			}
			pkg = &domain.Package{Name: packageRegex.FindStringSubmatch(line)[1], Status: domain.StatusDraft}
			p.Packages = append(p.Packages, pkg)
			sub = nil
			target = &pkg.Reviewers

		case projectRegex.MatchString(line):
			if p != nil {
				return nil, &ParseError{Line: lineNo, Msg: "second project title"}
			}
			p = &domain.Project{Name: strings.TrimSpace(projectRegex.FindStringSubmatch(line)[1]), Status: domain.StatusDraft}
			target = &p.Reviewers

		case taskRegex.MatchString(line):
			if sub == nil {
				return nil, &ParseError{Line: lineNo, Msg: "task outside a subpackage"}
			}
			m := taskRegex.FindStringSubmatch(line)
			t, err := parseTask(m[2], m[1] != " ")
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error()}
			}
			sub.Tasks = append(sub.Tasks, t)
			target = nil

		case reviewersRegex.MatchString(line):
			if target == nil {
				return nil, &ParseError{Line: lineNo, Msg: "reviewers line must follow a heading"}
			}
			for _, r := range strings.Split(reviewersRegex.FindStringSubmatch(line)[1], ",") {
				*target = target.Add(r)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("plan has no project title")
	}

	p.ID = id
	if p.ID == "" {
		p.ID = Slug(p.Name)
	}
	rollup.Recompute(p)
	return p, nil
}

func parseTask(text string, checked bool) (*domain.Task, error) {
	t := &domain.Task{Total: 1, Status: domain.StatusDraft}

	for _, m := range mentionRegex.FindAllStringSubmatch(text, -1) {
		if m[1] == "submitter" {
			t.Submitters = t.Submitters.Add(m[2])
		} else {
			t.Reviewers = t.Reviewers.Add(m[2])
		}
	}
	text = mentionRegex.ReplaceAllString(text, "")

	completedSet := false
	if m := attrsRegex.FindStringSubmatch(text); m != nil {
		for _, kv := range strings.Split(m[1], ",") {
			key, value, ok := strings.Cut(kv, ":")
			if !ok {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("bad %s value %q", strings.TrimSpace(key), strings.TrimSpace(value))
			}
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "total":
				t.Total = n
			case "completed":
				t.Completed = n
				completedSet = true
			}
		}
		text = attrsRegex.ReplaceAllString(text, "")
	}

	t.Name = strings.Join(strings.Fields(text), " ")
	if t.Name == "" {
		return nil, fmt.Errorf("task has no name")
	}
	if t.Total <= 0 {
		return nil, fmt.Errorf("task %q: total must be positive", t.Name)
	}
	if t.Completed < 0 || t.Completed > t.Total {
		return nil, fmt.Errorf("task %q: completed %d outside [0,%d]", t.Name, t.Completed, t.Total)
	}

	switch {
	case checked:
		t.Status = domain.StatusApproved
		if !completedSet {
			t.Completed = t.Total
		}
	case t.Submitters.Len() > 0:
		t.Status = domain.StatusInProgress
	}
	return t, nil
}

// Slug turns a name into a lowercase dash-separated id.
func Slug(s string) string {
	s = slugRegex.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "project"
	}
	return s
}

// Format renders p as an outline that Parse reads back. Level statuses and
// timestamps are not part of the format.
func Format(p *domain.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project: %s\n", p.Name)
	writeReviewers(&b, p.Reviewers)
	for _, pkg := range p.Packages {
		fmt.Fprintf(&b, "\n## Package: %s\n", pkg.Name)
		writeReviewers(&b, pkg.Reviewers)
		for _, sub := range pkg.SubPackages {
			fmt.Fprintf(&b, "\n### SubPackage: %s\n", sub.Name)
			writeReviewers(&b, sub.Reviewers)
			for _, t := range sub.Tasks {
				box := " "
				if t.Status == domain.StatusApproved {
					box = "x"
				}
				fmt.Fprintf(&b, "- [%s] %s (total: %d, completed: %d)", box, t.Name, t.Total, t.Completed)
				for _, u := range t.Submitters {
					fmt.Fprintf(&b, " @submitter:%s", u)
				}
				for _, u := range t.Reviewers {
					fmt.Fprintf(&b, " @reviewer:%s", u)
				}
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func writeReviewers(b *strings.Builder, r domain.UserSet) {
	if r.Len() > 0 {
		fmt.Fprintf(b, "Reviewers: %s\n", strings.Join(r, ", "))
	}
}
