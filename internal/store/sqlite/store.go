// Package sqlite provides a SQLite-backed project store. Each project tree is
// stored as one JSON document next to a version column that guards saves.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alexander-akhmetov/wbstrack/internal/domain"
	"github.com/alexander-akhmetov/wbstrack/internal/store"
	"github.com/alexander-akhmetov/wbstrack/internal/store/sqlite/migrations"
	"github.com/alexander-akhmetov/wbstrack/internal/timing"
)

// Store persists projects in a SQLite database.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

var _ store.Catalog = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	done := timing.Phase("sqlite migrations")
	err = applyMigrations(ctx, db, migrations.FS)
	done()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load returns the stored project tree.
func (s *Store) Load(ctx context.Context, id string) (*domain.Project, error) {
	var (
		tree      string
		version   int64
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tree_json, version, updated_at FROM projects WHERE id = ?`, id,
	).Scan(&tree, &version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}

	var p domain.Project
	if err := json.Unmarshal([]byte(tree), &p); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	p.Version = version
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &p, nil
}

// Save writes p if the stored version still equals p.Version.
func (s *Store) Save(ctx context.Context, p *domain.Project) error {
	now := s.clock().UTC().Truncate(time.Millisecond)
	tree, err := encode(p, p.Version+1, now)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE projects
SET name = ?, status = ?, progress = ?, version = version + 1, tree_json = ?, updated_at = ?
WHERE id = ? AND version = ?`,
		p.Name, string(p.Status), p.Progress, tree, now.UnixMilli(), p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save %s: %w", p.ID, err)
	}
	if n == 0 {
		var stored int64
		err := s.db.QueryRowContext(ctx, `SELECT version FROM projects WHERE id = ?`, p.ID).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("save %s: %w", p.ID, store.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("save %s: %w", p.ID, err)
		}
		return fmt.Errorf("save %s at version %d (stored %d): %w", p.ID, p.Version, stored, store.ErrConflict)
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

// Create inserts p at version 1.
func (s *Store) Create(ctx context.Context, p *domain.Project) error {
	now := s.clock().UTC().Truncate(time.Millisecond)
	tree, err := encode(p, 1, now)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO projects (id, name, status, progress, version, tree_json, updated_at)
VALUES (?, ?, ?, ?, 1, ?, ?)
ON CONFLICT(id) DO NOTHING`,
		p.ID, p.Name, string(p.Status), p.Progress, tree, now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("create %s: %w", p.ID, store.ErrConflict)
	}
	p.Version = 1
	p.UpdatedAt = now
	return nil
}

// List returns project summaries ordered by id.
func (s *Store) List(ctx context.Context) ([]store.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, status, progress, version, updated_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []store.Summary
	for rows.Next() {
		var (
			sum       store.Summary
			status    string
			updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &status, &sum.Progress, &sum.Version, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sum.Status = domain.Status(status)
		sum.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func encode(p *domain.Project, version int64, now time.Time) (string, error) {
	cp := *p
	cp.Version = version
	cp.UpdatedAt = now
	data, err := json.Marshal(&cp)
	if err != nil {
		return "", fmt.Errorf("encode project %s: %w", p.ID, err)
	}
	return string(data), nil
}
