// Package postgres is the production store.Store implementation, pgx-
// backed, grounded on the teacher's internal/db/postgres.go: a pooled
// connection, an InitSchema that loads schema.sql, and Tx wrapping the
// driver's own transaction type rather than rolling a bespoke one.
// Nested aggregate fields (a Round's TL-guess bookkeeping, a
// BackronymSet's entries/votes, a session's SessionConfig) are stored as
// JSONB columns — the same "any store supporting... JSON columns" shape
// store/interfaces.go's contract calls for, and the teacher's own
// evidence_edge/heuristic_flags columns already lean on Postgres for
// semi-structured data rather than forcing everything into a strict
// relational shape.
package postgres

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sheegaon/quipengine/internal/store"
)

// Store is the pgx-pooled Postgres backing store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool and verifies it with a ping,
// mirroring the teacher's db.Connect.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	log.Println("connected to PostgreSQL for the round & session coordinator")
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql, matching the teacher's
// read-file-then-exec pattern.
func (s *Store) InitSchema(ctx context.Context, schemaPath string) error {
	if schemaPath == "" {
		schemaPath = "internal/store/postgres/schema.sql"
	}
	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	log.Println("coordinator schema initialized")
	return nil
}

// tx wraps a pgx.Tx to satisfy store.Tx.
type tx struct {
	pgxTx pgx.Tx
}

func (t *tx) Commit(ctx context.Context) error   { return t.pgxTx.Commit(ctx) }
func (t *tx) Rollback(ctx context.Context) error { return t.pgxTx.Rollback(ctx) }

// Begin starts a real database transaction.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &tx{pgxTx: pgxTx}, nil
}

// querier is the subset of pgxpool.Pool / pgx.Tx every method needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// q resolves the executor for this call: the caller's transaction if
// given, otherwise the pool itself for an implicit single-statement
// unit of work — the same nil-tx convention store/interfaces.go documents.
func (s *Store) q(t store.Tx) querier {
	if t == nil {
		return s.pool
	}
	return t.(*tx).pgxTx
}

func isNoRows(err error) bool {
	return err == pgx.ErrNoRows
}
