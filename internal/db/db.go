package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors surfaced by the query layer.
var (
	// ErrNotFound is returned when a lookup matched no rows.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResolved is returned when resolving a notification or task
	// that already left the state the transition requires.
	ErrAlreadyResolved = errors.New("already resolved")
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*DB, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (d *DB) Close() {
	d.Pool.Close()
}
