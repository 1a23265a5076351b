// Package breaker decorates a GraphStore with retries and a circuit breaker.
// While the breaker is open every call fails fast with
// common.ErrStoreUnavailable instead of queueing on a dead connection pool.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	"github.com/sony/gobreaker"
)

type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
	// Retries is the number of attempts per call, including the first.
	Retries    int
	RetryDelay time.Duration
}

func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
		Retries:          3,
		RetryDelay:       100 * time.Millisecond,
	}
}

type Store struct {
	next    store.GraphStore
	cb      *gobreaker.CircuitBreaker
	retries util.RetryPolicy
}

var _ store.GraphStore = (*Store)(nil)

func New(next store.GraphStore, cfg Config) *Store {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("[Store] Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isSuccessful,
	})
	return &Store{
		next: next,
		cb:   cb,
		retries: util.RetryPolicy{
			MaxTries:  cfg.Retries,
			Delay:     cfg.RetryDelay,
			MaxDelay:  2 * time.Second,
			Retryable: retryable,
		},
	}
}

// State reports the breaker state for health checks.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

// Only store outages count against the breaker. A missing entity or a
// caller-side cancellation is a normal answer.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, common.ErrNotFound) ||
		errors.Is(err, context.Canceled)
}

func retryable(err error) bool {
	return !errors.Is(err, common.ErrNotFound) &&
		!errors.Is(err, gobreaker.ErrOpenState) &&
		!errors.Is(err, gobreaker.ErrTooManyRequests)
}

func call[T any](ctx context.Context, s *Store, op string, fn func(context.Context) (T, error)) (T, error) {
	res, err := util.RetryWithContext(ctx, s.retries, func(ctx context.Context) (T, error) {
		v, err := s.cb.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return v.(T), nil
	})
	if err == nil {
		return res, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
	}
	return res, common.StoreError(op, err)
}

func (s *Store) GetNode(ctx context.Context, id string) (common.Node, error) {
	return call(ctx, s, "get node", func(ctx context.Context) (common.Node, error) {
		return s.next.GetNode(ctx, id)
	})
}

func (s *Store) GetNodes(ctx context.Context, ids []string) ([]common.Node, error) {
	return call(ctx, s, "get nodes", func(ctx context.Context) ([]common.Node, error) {
		return s.next.GetNodes(ctx, ids)
	})
}

func (s *Store) NodesByType(ctx context.Context, nodeType common.NodeType) ([]common.Node, error) {
	return call(ctx, s, "nodes by type", func(ctx context.Context) ([]common.Node, error) {
		return s.next.NodesByType(ctx, nodeType)
	})
}

func (s *Store) EdgesByType(ctx context.Context, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	return call(ctx, s, "edges by type", func(ctx context.Context) ([]common.Edge, error) {
		return s.next.EdgesByType(ctx, edgeTypes...)
	})
}

func (s *Store) Neighbors(ctx context.Context, ids []string, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	return call(ctx, s, "neighbors", func(ctx context.Context) ([]common.Edge, error) {
		return s.next.Neighbors(ctx, ids, edgeTypes...)
	})
}

func (s *Store) Search(ctx context.Context, query string, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	return call(ctx, s, "search", func(ctx context.Context) ([]common.SearchHit, error) {
		return s.next.Search(ctx, query, nodeType, limit)
	})
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	return call(ctx, s, "counts", func(ctx context.Context) (store.Counts, error) {
		return s.next.Counts(ctx)
	})
}

func (s *Store) UpsertNodes(ctx context.Context, nodes []common.Node) error {
	_, err := call(ctx, s, "upsert nodes", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.UpsertNodes(ctx, nodes)
	})
	return err
}

func (s *Store) UpsertEdges(ctx context.Context, edges []common.Edge) error {
	_, err := call(ctx, s, "upsert edges", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.UpsertEdges(ctx, edges)
	})
	return err
}

func (s *Store) ReplaceFlags(ctx context.Context, flags []store.StoredFlag) error {
	_, err := call(ctx, s, "replace flags", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.ReplaceFlags(ctx, flags)
	})
	return err
}

func (s *Store) ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error) {
	return call(ctx, s, "list flags", func(ctx context.Context) ([]common.FlaggedEntity, error) {
		return s.next.ListFlags(ctx, severity, limit)
	})
}

func (s *Store) RecordRun(ctx context.Context, run store.PipelineRun) error {
	_, err := call(ctx, s, "record run", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.next.RecordRun(ctx, run)
	})
	return err
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.PipelineRun, error) {
	return call(ctx, s, "list runs", func(ctx context.Context) ([]store.PipelineRun, error) {
		return s.next.ListRuns(ctx, limit)
	})
}

// SaveEmbeddings forwards to the wrapped store when it keeps vectors.
func (s *Store) SaveEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	vs, ok := s.next.(store.VectorStore)
	if !ok {
		return fmt.Errorf("%w: backend has no vector index", common.ErrStoreUnavailable)
	}
	_, err := call(ctx, s, "save embeddings", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, vs.SaveEmbeddings(ctx, ids, vectors)
	})
	return err
}

func (s *Store) SearchSimilar(ctx context.Context, vector []float32, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	vs, ok := s.next.(store.VectorStore)
	if !ok {
		return nil, fmt.Errorf("%w: backend has no vector index", common.ErrStoreUnavailable)
	}
	return call(ctx, s, "search similar", func(ctx context.Context) ([]common.SearchHit, error) {
		return vs.SearchSimilar(ctx, vector, nodeType, limit)
	})
}

func (s *Store) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
