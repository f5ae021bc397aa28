// Package store provides generation history persistence using SQLite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Kind distinguishes the two generation operations.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Status is the outcome of a generation request.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Generation is one recorded request/response exchange with the model.
type Generation struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Input     string    `json:"input"` // the prompt, or the image URL
	Output    string    `json:"output,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages generation persistence in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS generations (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			input      TEXT NOT NULL,
			output     TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL,
			error      TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_generations_created_at
			ON generations(created_at);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a new generation record.
func (s *Store) Add(g *Generation) error {
	_, err := s.db.Exec(
		`INSERT INTO generations (id, kind, input, output, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Kind, g.Input, g.Output, g.Status, g.Error, g.CreatedAt,
	)
	return err
}

// Get retrieves a generation by ID.
func (s *Store) Get(id string) (*Generation, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, input, output, status, error, created_at
		 FROM generations WHERE id = ?`, id,
	)
	var g Generation
	if err := row.Scan(&g.ID, &g.Kind, &g.Input, &g.Output, &g.Status, &g.Error, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns up to limit generations ordered by creation time (newest
// first). A limit of 0 or less means no limit.
func (s *Store) List(limit int) ([]*Generation, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unlimited
	}
	rows, err := s.db.Query(
		`SELECT id, kind, input, output, status, error, created_at
		 FROM generations ORDER BY created_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var generations []*Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.Kind, &g.Input, &g.Output, &g.Status, &g.Error, &g.CreatedAt); err != nil {
			return nil, err
		}
		generations = append(generations, &g)
	}
	return generations, rows.Err()
}
