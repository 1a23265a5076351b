// Package pgx is the PostgreSQL GraphStore. Nodes and edges live in two
// JSONB tables keyed by natural id; name search uses pg_trgm and semantic
// search uses pgvector.
package pgx

import (
	"context"
	"fmt"

	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	SendBatch(ctx context.Context, b *pgxv5.Batch) pgxv5.BatchResults
}

// Store implements store.GraphStore and store.VectorStore on PostgreSQL.
type Store struct {
	conn            pgxIConn
	batchSize       int
	searchThreshold float64
}

var (
	_ store.GraphStore  = (*Store)(nil)
	_ store.VectorStore = (*Store)(nil)
)

type Option func(*Store)

// WithBatchSize bounds the rows written per statement.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSearchThreshold sets the minimum trigram similarity for fuzzy name hits.
func WithSearchThreshold(t float64) Option {
	return func(s *Store) {
		s.searchThreshold = t
	}
}

func New(conn pgxIConn, opts ...Option) *Store {
	s := &Store{
		conn:            conn,
		batchSize:       store.DefaultBatchSize,
		searchThreshold: 0.3,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Connect opens a pool with the pgvector types registered on every connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgxv5.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Close releases the pool when the store owns one.
func (s *Store) Close(ctx context.Context) error {
	if c, ok := s.conn.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
