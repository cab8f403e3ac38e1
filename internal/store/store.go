// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrDuplicate is returned by inserts that lost to a unique index.
// The import pipeline relies on it to count racy duplicates as skipped
// instead of failing a whole step.
var ErrDuplicate = errors.New("row already exists")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// isUniqueViolation reports whether err is a sqlite unique-index error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
