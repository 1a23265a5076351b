package graph

import (
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/resolve"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// GraphClient turns flat source records into graph nodes and edges and
// writes them to a store.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	batchSize      int
	parallelWrites int
	maxRetries     int
	resolveOpts    resolve.Options
	observer       Observer
}

// Observer receives one call per finished ingest run. internal/metrics
// implements it with Prometheus collectors.
type Observer interface {
	IngestFinished(source string, records, skipped int, took time.Duration, err error)
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// BatchSize bounds the nodes or edges sent per upsert call.
// ParallelWrites controls how many upsert chunks are in flight at once.
// MaxRetries is the number of attempts per chunk when the store is unavailable.
type NewGraphClientParams struct {
	BatchSize       int
	ParallelWrites  int
	MaxRetries      int
	AutoThreshold   float64
	ReviewThreshold float64
	Observer        Observer
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		BatchSize:      1000,
//		ParallelWrites: 2,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	report, err := client.Ingest(ctx, st, graph.SourceAwards, records)
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = store.DefaultBatchSize
	}
	parallel := params.ParallelWrites
	if parallel <= 0 {
		parallel = 1
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	opts := resolve.DefaultOptions()
	opts.NameFields = []string{"name"}
	if params.AutoThreshold > 0 {
		opts.AutoThreshold = params.AutoThreshold
	}
	if params.ReviewThreshold > 0 {
		opts.ReviewThreshold = params.ReviewThreshold
	}

	g := &GraphClient{
		batchSize:      batchSize,
		parallelWrites: parallel,
		maxRetries:     maxRetries,
		resolveOpts:    opts,
		observer:       params.Observer,
	}
	return g, nil
}
