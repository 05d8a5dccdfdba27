// Package sqlite implements the catalog, attempt, and user stores on a
// single sqlite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"quiz-engine/internal/quiz"
)

type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// storageErr wraps unexpected driver failures so callers can classify them as
// transient. Domain sentinels pass through untouched.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, quiz.ErrNotFound) ||
		errors.Is(err, quiz.ErrDuplicateAttempt) ||
		errors.Is(err, quiz.ErrInvalidStateTransition) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, quiz.ErrStorageUnavailable, err)
}
