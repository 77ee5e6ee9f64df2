// Package store provides SQLite storage for the board's tasks and the
// assistant's chat history.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// pragmas are applied to the connection before migrating.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
}

// Store owns the database handle shared by the task and message
// repositories.
type Store struct {
	db       *sql.DB
	path     string
	tasks    *TaskRepository
	messages *MessageRepository
}

// New opens the database at path, applies connection pragmas and migrates
// the schema to the latest version.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: pragmas are per connection and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	s := &Store{
		db:       db,
		path:     path,
		tasks:    &TaskRepository{db: db},
		messages: &MessageRepository{db: db},
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Tasks returns the task repository.
func (s *Store) Tasks() *TaskRepository { return s.tasks }

// Messages returns the chat message repository.
func (s *Store) Messages() *MessageRepository { return s.messages }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}
