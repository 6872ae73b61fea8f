// Package store holds the sqlx-backed Postgres repositories.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrCommit is returned when a transaction's COMMIT fails; its outcome is unknown.
	ErrCommit = errors.New("store: commit failed")
)

// Store groups the repositories sharing one connection pool.
type Store struct {
	db *sqlx.DB

	Regions *RegionStore
	Users   *UserStore
	Visits  *VisitStore
}

func New(db *sqlx.DB) *Store {
	return &Store{
		db:      db,
		Regions: &RegionStore{db: db},
		Users:   &UserStore{db: db},
		Visits:  &VisitStore{db: db},
	}
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
