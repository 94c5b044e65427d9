// Package sqlite implements vitrail.WindowStore using pure-Go SQLite.
// Zero CGO required. Windows survive process restarts, so a session can
// pick up documents built by an earlier run.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	vitrail "vitrail"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. When set, the store
// emits debug logs for every operation including timing and key
// parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements vitrail.WindowStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ vitrail.WindowStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the windows table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS windows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		title TEXT NOT NULL,
		markup TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	_, _ = s.db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_windows_name ON windows(name)`)
	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// Create inserts or replaces a window.
func (s *Store) Create(ctx context.Context, w vitrail.Window) error {
	s.logger.Debug("sqlite: create window", "id", w.ID, "name", w.Name)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO windows (id, name, title, markup, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Title, w.Markup, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

// Get returns the window with the given id.
func (s *Store) Get(ctx context.Context, id string) (vitrail.Window, error) {
	return s.scanOne(ctx, `SELECT id, name, title, markup, created_at FROM windows WHERE id = ?`, id)
}

// GetByName returns the window with the given display name.
func (s *Store) GetByName(ctx context.Context, name string) (vitrail.Window, error) {
	return s.scanOne(ctx, `SELECT id, name, title, markup, created_at FROM windows WHERE name = ?`, name)
}

func (s *Store) scanOne(ctx context.Context, query, arg string) (vitrail.Window, error) {
	var w vitrail.Window
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&w.ID, &w.Name, &w.Title, &w.Markup, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return vitrail.Window{}, vitrail.ErrWindowNotFound
	}
	if err != nil {
		return vitrail.Window{}, fmt.Errorf("get window: %w", err)
	}
	return w, nil
}

// List returns all windows ordered by creation time.
func (s *Store) List(ctx context.Context) ([]vitrail.Window, error) {
	rows, err := s.db.QueryContext(ctx,
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
	return s.update(ctx, `UPDATE windows SET markup = ? WHERE id = ?`, markup, id)
}

// UpdateTitle replaces the window's title.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	return s.update(ctx, `UPDATE windows SET title = ? WHERE id = ?`, title, id)
}

func (s *Store) update(ctx context.Context, query, value, id string) error {
	res, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("update window: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return vitrail.ErrWindowNotFound
	}
	return nil
}

// Delete removes the window. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM windows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
