package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
)

// Memory is an in-process Catalog. It stores deep copies, so callers never
// share tree pointers with the store. The hook fields let tests inject
// failures, and the call counters record traffic.
type Memory struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
	clock    func() time.Time

	LoadFunc func(id string) error
	SaveFunc func(p *domain.Project) error

	LoadCalls []string
	SaveCalls []string
}

var _ Catalog = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]*domain.Project),
		clock:    time.Now,
	}
}

// WithClock sets the clock used to stamp UpdatedAt.
func (m *Memory) WithClock(clock func() time.Time) *Memory {
	m.clock = clock
	return m
}

// Load returns a copy of the stored project.
func (m *Memory) Load(ctx context.Context, id string) (*domain.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.LoadCalls = append(m.LoadCalls, id)
	hook := m.LoadFunc
	m.mu.Unlock()

	if hook != nil {
		if err := hook(id); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

// Save stores a copy of p when its version matches.
func (m *Memory) Save(ctx context.Context, p *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.SaveCalls = append(m.SaveCalls, p.ID)
	hook := m.SaveFunc
	m.mu.Unlock()

	if hook != nil {
		if err := hook(p); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.projects[p.ID]
	if !ok {
		return fmt.Errorf("save %s: %w", p.ID, ErrNotFound)
	}
	if cur.Version != p.Version {
		return fmt.Errorf("save %s at version %d (stored %d): %w", p.ID, p.Version, cur.Version, ErrConflict)
	}
	p.Version++
	p.UpdatedAt = m.clock().UTC()
	m.projects[p.ID] = p.Clone()
	return nil
}

// Create inserts a new project at version 1.
func (m *Memory) Create(ctx context.Context, p *domain.Project) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; ok {
		return fmt.Errorf("create %s: %w", p.ID, ErrConflict)
	}
	p.Version = 1
	p.UpdatedAt = m.clock().UTC()
	m.projects[p.ID] = p.Clone()
	return nil
}

// List returns summaries ordered by id.
func (m *Memory) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Summary, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, Summarize(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
