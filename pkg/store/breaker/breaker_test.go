package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store/memory"

	"github.com/sony/gobreaker"
)

type flakyStore struct {
	*memory.Store
	calls int
	fail  bool
}

func (f *flakyStore) NodesByType(ctx context.Context, t common.NodeType) ([]common.Node, error) {
	f.calls++
	if f.fail {
		return nil, common.StoreError("nodes by type", errors.New("connection refused"))
	}
	return f.Store.NodesByType(ctx, t)
}

func testConfig() Config {
	cfg := DefaultConfig("test")
	cfg.Retries = 1
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Hour
	return cfg
}

func TestBreakerOpensAndFailsFast(t *testing.T) {
	inner := &flakyStore{Store: memory.New(), fail: true}
	s := New(inner, testConfig())
	ctx := context.Background()

	for range 3 {
		if _, err := s.NodesByType(ctx, common.NodeAgency); !errors.Is(err, common.ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	}
	if s.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", s.State())
	}

	calls := inner.calls
	_, err := s.NodesByType(ctx, common.NodeAgency)
	if !errors.Is(err, common.ErrStoreUnavailable) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open-state store error, got %v", err)
	}
	if inner.calls != calls {
		t.Fatalf("open breaker must not reach the backend")
	}
}

func TestNotFoundDoesNotTrip(t *testing.T) {
	s := New(memory.New(), testConfig())
	for range 10 {
		_, err := s.GetNode(context.Background(), "Contractor:MISSING")
		if !errors.Is(err, common.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if errors.Is(err, common.ErrStoreUnavailable) {
			t.Fatalf("not found must not read as unavailable: %v", err)
		}
	}
	if s.State() != gobreaker.StateClosed {
		t.Fatalf("breaker tripped on not found")
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	inner := &flakyStore{Store: memory.New(), fail: true}
	cfg := testConfig()
	cfg.Retries = 3
	cfg.RetryDelay = time.Millisecond
	cfg.MinRequests = 100
	s := New(inner, cfg)

	_, _ = s.NodesByType(context.Background(), common.NodeAgency)
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestPassesThroughWrites(t *testing.T) {
	inner := memory.New()
	s := New(inner, testConfig())
	ctx := context.Background()
	n := common.Node{ID: "Agency:DPWH", Type: common.NodeAgency, Properties: common.Properties{"name": "DPWH"}}
	if err := s.UpsertNodes(ctx, []common.Node{n}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetNode(ctx, n.ID)
	if err != nil || got.Label() != "DPWH" {
		t.Fatalf("got %+v, %v", got, err)
	}
	if _, err := s.SearchSimilar(ctx, []float32{1, 0}, "", 5); err != nil {
		t.Fatalf("memory store keeps vectors: %v", err)
	}
}
