// Package pgx implements store.PlanStorage on PostgreSQL with pgvector.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// PlanDBStorage implements the PlanStorage interface using PostgreSQL.
// Node embeddings are stored in a pgvector column, so the pool must have
// the vector types registered (see pgvector-go/pgx RegisterTypes).
type PlanDBStorage struct {
	conn      pgxIConn
	chunkSize int
}

type PlanDBStorageOption func(*PlanDBStorage)

// WithChunkSize sets how many node rows are copied per statement.
func WithChunkSize(n int) PlanDBStorageOption {
	return func(s *PlanDBStorage) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// NewPlanDBStorageWithConnection creates a PlanDBStorage on an existing
// connection or pool.
func NewPlanDBStorageWithConnection(conn pgxIConn, opts ...PlanDBStorageOption) *PlanDBStorage {
	s := &PlanDBStorage{
		conn:      conn,
		chunkSize: 1000,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}
