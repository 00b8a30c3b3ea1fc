package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides the scheduling core's storage collaborator over Postgres. The
// engine itself never touches it; services load snapshots through it before
// a run and persist the run's result set afterwards.
type DB struct {
	pool *pgxpool.Pool
}

// New connects a pool to the given database URL.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// NewFromPool wraps an existing pool, mainly for tests.
func NewFromPool(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Close releases the pool.
func (db *DB) Close() {
	db.pool.Close()
}
