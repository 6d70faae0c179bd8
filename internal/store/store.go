// Package store defines how the workflow loads and saves whole project trees.
// Saves are guarded by optimistic versioning: a project can only be saved
// over the exact version it was loaded at, so concurrent writers cannot
// silently overwrite each other.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
)

var (
	// ErrNotFound indicates the requested project does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrConflict indicates the stored version differs from the one being saved,
	// or that a project with the same id already exists on create.
	ErrConflict = errors.New("project version conflict")
)

// ProjectStore is the persistence boundary the workflow needs.
type ProjectStore interface {
	// Load returns the project with the given id or ErrNotFound.
	Load(ctx context.Context, id string) (*domain.Project, error)

	// Save writes p if the stored version equals p.Version. On success the
	// store increments p.Version and stamps p.UpdatedAt. A mismatch returns
	// ErrConflict and leaves the stored project untouched.
	Save(ctx context.Context, p *domain.Project) error
}

// Catalog adds the project management operations used by the CLI.
type Catalog interface {
	ProjectStore

	// Create inserts a new project at version 1, or returns ErrConflict if the
	// id is taken.
	Create(ctx context.Context, p *domain.Project) error

	// List returns a summary of every stored project ordered by id.
	List(ctx context.Context) ([]Summary, error)
}

// Summary is a lightweight listing row.
type Summary struct {
	ID        string
	Name      string
	Status    domain.Status
	Progress  int
	Version   int64
	UpdatedAt time.Time
}

// Summarize builds a listing row from a project.
func Summarize(p *domain.Project) Summary {
	return Summary{
		ID:        p.ID,
		Name:      p.Name,
		Status:    p.Status,
		Progress:  p.Progress,
		Version:   p.Version,
		UpdatedAt: p.UpdatedAt,
	}
}
