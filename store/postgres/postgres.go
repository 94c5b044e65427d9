// Package postgres implements vitrail.WindowStore using PostgreSQL.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	vitrail "vitrail"
)

// Store implements vitrail.WindowStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ vitrail.WindowStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the windows table.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS windows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		markup TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Create inserts or replaces a window.
func (s *Store) Create(ctx context.Context, w vitrail.Window) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO windows (id, name, title, markup, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, title = EXCLUDED.title,
		   markup = EXCLUDED.markup, created_at = EXCLUDED.created_at`,
		w.ID, w.Name, w.Title, w.Markup, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

// Get returns the window with the given id.
func (s *Store) Get(ctx context.Context, id string) (vitrail.Window, error) {
	return s.scanOne(ctx, `SELECT id, name, title, markup, created_at FROM windows WHERE id = $1`, id)
}

// GetByName returns the window with the given display name.
func (s *Store) GetByName(ctx context.Context, name string) (vitrail.Window, error) {
	return s.scanOne(ctx, `SELECT id, name, title, markup, created_at FROM windows WHERE name = $1`, name)
}

func (s *Store) scanOne(ctx context.Context, query, arg string) (vitrail.Window, error) {
	var w vitrail.Window
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&w.ID, &w.Name, &w.Title, &w.Markup, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return vitrail.Window{}, vitrail.ErrWindowNotFound
	}
	if err != nil {
		return vitrail.Window{}, fmt.Errorf("get window: %w", err)
	}
	return w, nil
}

// List returns all windows ordered by creation time.
func (s *Store) List(ctx context.Context) ([]vitrail.Window, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, title, markup, created_at FROM windows ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var out []vitrail.Window
	for rows.Next() {
		var w vitrail.Window
		if err := rows.Scan(&w.ID, &w.Name, &w.Title, &w.Markup, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateMarkup replaces the window's markup.
func (s *Store) UpdateMarkup(ctx context.Context, id, markup string) error {
	return s.update(ctx, `UPDATE windows SET markup = $1 WHERE id = $2`, markup, id)
}

// UpdateTitle replaces the window's title.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	return s.update(ctx, `UPDATE windows SET title = $1 WHERE id = $2`, title, id)
}

func (s *Store) update(ctx context.Context, query, value, id string) error {
	tag, err := s.pool.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return vitrail.ErrWindowNotFound
	}
	return nil
}

// Delete removes the window. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	return nil
}

// Close is a no-op: the pool is externally owned.
func (s *Store) Close() error { return nil }
