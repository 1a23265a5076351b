// Package store defines the graph store contract consumed by detectors,
// analytics and ingest. Backends live in subpackages: pgx (PostgreSQL),
// neo4j, memory (tests and dry runs), and breaker (a circuit-breaking
// decorator).
//
// Every backend reports driver and query failures wrapped in
// common.ErrStoreUnavailable and missing entities as common.ErrNotFound.
package store

import (
	"context"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// GraphReader is the read side used by detectors and analytics. Results are
// ordered by id so that a fixed graph snapshot always yields the same output.
type GraphReader interface {
	GetNode(ctx context.Context, id string) (common.Node, error)
	// GetNodes returns the nodes that exist among ids; missing ids are skipped.
	GetNodes(ctx context.Context, ids []string) ([]common.Node, error)
	NodesByType(ctx context.Context, nodeType common.NodeType) ([]common.Node, error)
	EdgesByType(ctx context.Context, edgeTypes ...common.EdgeType) ([]common.Edge, error)
	// Neighbors returns edges incident to any of ids in either direction,
	// optionally restricted to edgeTypes.
	Neighbors(ctx context.Context, ids []string, edgeTypes ...common.EdgeType) ([]common.Edge, error)
	// Search runs a full-text prefix search over node names. An empty
	// nodeType searches all types.
	Search(ctx context.Context, query string, nodeType common.NodeType, limit int) ([]common.SearchHit, error)
	Counts(ctx context.Context) (Counts, error)
}

// GraphWriter upserts by id. Properties of an existing node or edge are
// merged, so repeated loads never create duplicates.
type GraphWriter interface {
	UpsertNodes(ctx context.Context, nodes []common.Node) error
	UpsertEdges(ctx context.Context, edges []common.Edge) error
}

// FlagStore persists detector output for the stored red-flag query path.
type FlagStore interface {
	// ReplaceFlags swaps the full set of stored flags atomically.
	ReplaceFlags(ctx context.Context, flags []StoredFlag) error
	// ListFlags returns flagged entities ordered by risk score. An empty
	// severity returns all flags.
	ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error)
}

// RunStore records ingest and detection runs for pipeline status.
type RunStore interface {
	RecordRun(ctx context.Context, run PipelineRun) error
	ListRuns(ctx context.Context, limit int) ([]PipelineRun, error)
}

type GraphStore interface {
	GraphReader
	GraphWriter
	FlagStore
	RunStore
	Close(ctx context.Context) error
}

// VectorStore is implemented by backends that keep node embeddings.
type VectorStore interface {
	SaveEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error
	SearchSimilar(ctx context.Context, vector []float32, nodeType common.NodeType, limit int) ([]common.SearchHit, error)
}

type Counts struct {
	Nodes map[common.NodeType]int `json:"nodes"`
	Edges map[common.EdgeType]int `json:"edges"`
}

// StoredFlag is one persisted red flag attributed to an entity.
type StoredFlag struct {
	Entity common.EntityRef
	Flag   common.RedFlag
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// PipelineRun describes one ingest or detection run.
type PipelineRun struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Status     RunStatus      `json:"status"`
	Records    int            `json:"records"`
	Skipped    int            `json:"skipped"`
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	Error      string         `json:"error,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}
