package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
)

var fixed = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newProject(id string) *domain.Project {
	return &domain.Project{
		ID:   id,
		Name: "Project " + id,
		Packages: []*domain.Package{{
			Name:        "P",
			SubPackages: []*domain.SubPackage{{Name: "S", Tasks: []*domain.Task{{Name: "T", Total: 5}}}},
		}},
	}
}

func TestMemory_CreateLoadSave(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().WithClock(func() time.Time { return fixed })

	p := newProject("a")
	require.NoError(t, m.Create(ctx, p))
	assert.Equal(t, int64(1), p.Version)

	loaded, err := m.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, p, loaded)

	loaded.Name = "Renamed"
	require.NoError(t, m.Save(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)
	assert.Equal(t, fixed, loaded.UpdatedAt)

	again, err := m.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)
	assert.Equal(t, int64(2), again.Version)

	assert.Equal(t, []string{"a", "a"}, m.LoadCalls)
	assert.Equal(t, []string{"a"}, m.SaveCalls)
}

func TestMemory_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := newProject("a")
	require.NoError(t, m.Create(ctx, p))

	p.Packages[0].SubPackages[0].Tasks[0].Completed = 5

	loaded, err := m.Load(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, loaded.Packages[0].SubPackages[0].Tasks[0].Completed)
}

func TestMemory_SaveConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newProject("a")))

	first, err := m.Load(ctx, "a")
	require.NoError(t, err)
	second, err := m.Load(ctx, "a")
	require.NoError(t, err)

	first.Name = "first"
	require.NoError(t, m.Save(ctx, first))

	second.Name = "second"
	err = m.Save(ctx, second)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1), second.Version, "failed save must not bump version")

	stored, err := m.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Name)
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	err = m.Save(ctx, newProject("missing"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newProject("a")))
	require.ErrorIs(t, m.Create(ctx, newProject("a")), ErrConflict)
}

func TestMemory_Hooks(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newProject("a")))

	boom := errors.New("disk full")
	m.SaveFunc = func(*domain.Project) error { return boom }
	p, err := m.Load(ctx, "a")
	require.NoError(t, err)
	require.ErrorIs(t, m.Save(ctx, p), boom)

	m.LoadFunc = func(string) error { return boom }
	_, err = m.Load(ctx, "a")
	require.ErrorIs(t, err, boom)
}

func TestMemory_List(t *testing.T) {
	ctx := context.Background()
	m := NewMemory().WithClock(func() time.Time { return fixed })
	require.NoError(t, m.Create(ctx, newProject("b")))
	require.NoError(t, m.Create(ctx, newProject("a")))

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "Project b", list[1].Name)
	assert.Equal(t, int64(1), list[1].Version)
	assert.Equal(t, fixed, list[1].UpdatedAt)
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()

	_, err := m.Load(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, m.Save(ctx, newProject("a")), context.Canceled)
}
