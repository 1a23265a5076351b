// Package graph builds the accountability graph from flat source records.
//
// Every record maps onto nodes keyed by natural keys, so loading the same
// export twice upserts the same nodes and edges. Contractor names are
// resolved before keys are computed, and links that only emerge across
// records (co-bidding, shared addresses and directors, co-authorship) are
// derived and written with the batch.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/derive"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/resolve"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	"golang.org/x/sync/errgroup"
)

// Store is the part of a graph store ingest needs.
type Store interface {
	store.GraphReader
	store.GraphWriter
	store.RunStore
}

// IngestReport summarizes one ingest run.
type IngestReport struct {
	RunID          string                  `json:"run_id"`
	Source         Source                  `json:"source"`
	Records        int                     `json:"records"`
	Skipped        int                     `json:"skipped"`
	Nodes          int                     `json:"nodes"`
	Edges          int                     `json:"edges"`
	DerivedEdges   map[common.EdgeType]int `json:"derived_edges"`
	MergeMap       map[string]string       `json:"merge_map"`
	ReviewRequired []resolve.MergeDecision `json:"review_required"`
	SplitClusters  []derive.SplitCluster   `json:"split_clusters,omitempty"`
	StartedAt      time.Time               `json:"started_at"`
	Took           time.Duration           `json:"took"`
}

// Ingest maps records of one source onto the graph and writes them to st.
// Malformed records are skipped and counted; a store failure aborts the run
// and is returned wrapped in common.ErrStoreUnavailable. Every run is
// recorded as a PipelineRun.
func (g *GraphClient) Ingest(ctx context.Context, st Store, source Source, records []common.Record) (*IngestReport, error) {
	if _, ok := required[source]; !ok {
		return nil, fmt.Errorf("%w: unknown source %q", common.ErrMalformedInput, source)
	}

	report := &IngestReport{
		RunID:        util.NewID(),
		Source:       source,
		Records:      len(records),
		DerivedEdges: map[common.EdgeType]int{},
		MergeMap:     map[string]string{},
		StartedAt:    time.Now().UTC(),
	}
	run := store.PipelineRun{
		ID:        report.RunID,
		Source:    string(source),
		Status:    store.RunRunning,
		Records:   len(records),
		StartedAt: report.StartedAt,
	}
	if err := st.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record pipeline run: %w", err)
	}

	logger.Info("[Graph] Ingesting", "source", source, "records", len(records), "run_id", report.RunID)

	err := g.ingest(ctx, st, source, records, report)
	report.Took = time.Since(report.StartedAt)
	if g.observer != nil {
		g.observer.IngestFinished(string(source), report.Records, report.Skipped, report.Took, err)
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Skipped = report.Skipped
	run.Nodes = report.Nodes
	run.Edges = report.Edges
	run.Details = map[string]any{
		"merged":          len(report.MergeMap),
		"review_required": len(report.ReviewRequired),
		"split_clusters":  len(report.SplitClusters),
	}
	run.Status = store.RunSucceeded
	if err != nil {
		run.Status = store.RunFailed
		run.Error = err.Error()
	}
	if rerr := st.RecordRun(context.WithoutCancel(ctx), run); rerr != nil {
		logger.Warn("[Graph] Failed to record pipeline run", "run_id", run.ID, "err", rerr)
	}

	if err != nil {
		logger.Error("[Graph] Ingest failed", "source", source, "run_id", report.RunID, "err", err)
		return report, err
	}
	logger.Info("[Graph] Ingest completed",
		"source", source,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"skipped", report.Skipped,
		"took", report.Took,
	)
	return report, nil
}

func (g *GraphClient) ingest(ctx context.Context, st Store, source Source, records []common.Record, report *IngestReport) error {
	valid := make([]common.Record, 0, len(records))
	for _, r := range records {
		if err := source.validate(r); err != nil {
			report.Skipped++
			continue
		}
		valid = append(valid, r)
	}
	if report.Skipped > 0 {
		logger.Warn("[Graph] Skipped malformed records", "source", source, "skipped", report.Skipped, "records", len(records))
	}

	canonical := g.resolveContractors(source, valid, report)

	l, err := loadLookups(ctx, st, source)
	if err != nil {
		return err
	}

	b := newBuilder(source, l, canonical)
	for _, r := range valid {
		b.add(r)
	}
	b.finish()

	switch source {
	case SourceBids:
		b.coBidEdges(valid)
	case SourceContractors, SourceOwnership:
		if err := b.sharedAttributeEdges(ctx, st); err != nil {
			return err
		}
	case SourceAwards:
		named := resolve.ApplyMergeMap(valid, canonical, "contractor_name")
		for i, r := range named {
			c := r.Clone()
			c["procuring_entity"] = agencyKey(r.Text("procuring_entity"))
			named[i] = c
		}
		report.SplitClusters, _ = derive.SplitContracts(named, derive.DefaultSplitOptions())
	}
	for t, n := range b.derived {
		report.DerivedEdges[t] = n
	}

	nodes := store.MergeNodes(b.nodes)
	edges := store.MergeEdges(b.edges)
	if err := g.write(ctx, len(nodes), func(ctx context.Context, start, end int) error {
		return st.UpsertNodes(ctx, nodes[start:end])
	}); err != nil {
		return fmt.Errorf("failed to save nodes: %w", err)
	}
	if err := g.write(ctx, len(edges), func(ctx context.Context, start, end int) error {
		return st.UpsertEdges(ctx, edges[start:end])
	}); err != nil {
		return fmt.Errorf("failed to save edges: %w", err)
	}
	report.Nodes = len(nodes)
	report.Edges = len(edges)
	return nil
}

// resolveContractors resolves every contractor name in records and returns
// the raw -> canonical merge map.
func (g *GraphClient) resolveContractors(source Source, records []common.Record, report *IngestReport) map[string]string {
	fields := contractorFields[source]
	if len(fields) == 0 {
		return map[string]string{}
	}
	names := make([]common.Record, 0, len(records))
	for _, r := range records {
		for _, f := range fields {
			if n := r.Text(f); n != "" {
				names = append(names, common.Record{"name": n})
			}
		}
	}
	res := resolve.Resolve(names, g.resolveOpts)
	report.MergeMap = res.MergeMap
	report.ReviewRequired = res.ReviewRequired
	return res.MergeMap
}

// write upserts total items in chunks of batchSize, running up to
// parallelWrites chunks at once. Chunks failing with a store error are retried.
func (g *GraphClient) write(ctx context.Context, total int, fn func(ctx context.Context, start, end int) error) error {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelWrites)
	policy := util.RetryPolicy{
		MaxTries: g.maxRetries,
		Delay:    200 * time.Millisecond,
		MaxDelay: 5 * time.Second,
		Retryable: func(err error) bool {
			return errors.Is(err, common.ErrStoreUnavailable)
		},
	}
	_ = store.ChunkRange(total, g.batchSize, func(start, end int) error {
		eg.Go(func() error {
			return util.RetryErrWithContext(gCtx, policy, func(ctx context.Context) error {
				return fn(ctx, start, end)
			})
		})
		return nil
	})
	return eg.Wait()
}

// loadLookups reads the entities a source references by name.
func loadLookups(ctx context.Context, r store.GraphReader, source Source) (lookups, error) {
	l := lookups{
		municipalities: map[string]string{},
		provinces:      map[string][]string{},
		politicians:    map[string]bool{},
	}
	switch source {
	case SourceAgencies, SourceMembers, SourceContractors, SourceDynasties:
		munis, err := r.NodesByType(ctx, common.NodeMunicipality)
		if err != nil {
			return l, err
		}
		for _, m := range munis {
			if name := m.Properties.Text("name"); name != "" {
				l.municipalities[strings.ToUpper(name)] = m.ID
			}
			if prov := m.Properties.Text("province"); prov != "" {
				key := strings.ToUpper(prov)
				l.provinces[key] = append(l.provinces[key], m.ID)
			}
		}
	case SourceAuditFindings:
		pols, err := r.NodesByType(ctx, common.NodePolitician)
		if err != nil {
			return l, err
		}
		for _, p := range pols {
			l.politicians[p.ID] = true
		}
	}
	return l, nil
}
