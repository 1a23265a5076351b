package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/detect"
	"github.com/kwenta-ph/kwenta/backend/pkg/graph"
	"github.com/kwenta-ph/kwenta/backend/pkg/leaselock"
	"github.com/kwenta-ph/kwenta/backend/pkg/loader"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/rag"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// Processor executes queue messages against a graph store.
type Processor struct {
	Store  store.GraphStore
	Graph  *graph.GraphClient
	Files  loader.RecordLoader
	Params detect.Params
	// Locker serializes detect runs across workers. Without one, runs are
	// only serialized within this process.
	Locker *leaselock.Locker
	// AI and Vectors, when both set, refresh the name embeddings after
	// every ingest.
	AI      ai.GraphAIClient
	Vectors store.VectorStore
}

// Process dispatches body by queue name.
func (p *Processor) Process(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case IngestQueue:
		return p.ProcessIngest(ctx, body)
	case DetectQueue:
		return p.ProcessDetect(ctx, body)
	}
	return fmt.Errorf("%w: unknown queue %q", common.ErrMalformedInput, queueName)
}

// ProcessIngest loads every file of the message and ingests the records as
// one run, so contractor names are resolved across all files together.
func (p *Processor) ProcessIngest(ctx context.Context, body []byte) error {
	msg, err := decodeIngest(body)
	if err != nil {
		return err
	}
	source, _ := graph.ParseSource(msg.Source)

	var records []common.Record
	for _, f := range msg.Files {
		file := loader.SourceFile{ID: msg.CorrelationID, Path: f.Key, Source: string(source), Sheet: f.Sheet}
		rs, err := p.Files.GetRecords(ctx, file)
		if err != nil {
			return fmt.Errorf("load %s: %w", f.Key, err)
		}
		logger.Info("[Queue] Loaded export", "key", f.Key, "records", len(rs))
		records = append(records, rs...)
		if f, ok := p.Files.(interface{ Forget(loader.SourceFile) }); ok {
			f.Forget(file)
		}
	}

	report, err := p.Graph.Ingest(ctx, p.Store, source, records)
	if err != nil {
		return err
	}
	if len(report.ReviewRequired) > 0 {
		logger.Warn("[Queue] Contractor names need review",
			"source", source,
			"pairs", len(report.ReviewRequired),
			"run_id", report.RunID,
		)
	}
	if p.AI != nil && p.Vectors != nil {
		n, err := rag.IndexEmbeddings(ctx, p.Store, p.Vectors, p.AI, util.GetEnvInt("AI_PARALLEL_REQ", 4))
		if err != nil {
			logger.Warn("[Queue] Embedding refresh failed", "run_id", report.RunID, "embedded", n, "err", err)
		} else {
			logger.Info("[Queue] Embeddings refreshed", "nodes", n)
		}
	}
	return nil
}

// ProcessDetect recomputes red flags under the detect lease and replaces the
// stored set. A detect message that finds the lease held is dropped, since
// the running recompute already covers it.
func (p *Processor) ProcessDetect(ctx context.Context, body []byte) error {
	msg, err := decodeDetect(body)
	if err != nil {
		return err
	}
	for _, name := range msg.Detectors {
		if !slices.Contains(detect.Names(), name) {
			return fmt.Errorf("%w: unknown detector %q", common.ErrMalformedInput, name)
		}
	}

	if p.Locker == nil {
		return p.detect(ctx, msg)
	}
	err = p.Locker.Do(ctx, leaselock.DetectKey, leaselock.Options{
		TTL:         10 * time.Minute,
		OwnerPrefix: "worker/",
	}, func(ctx context.Context) error {
		return p.detect(ctx, msg)
	})
	if errors.Is(err, leaselock.ErrBusy) {
		logger.Info("[Queue] Detect already running, skipping", "correlation_id", msg.CorrelationID)
		return nil
	}
	return err
}

func (p *Processor) detect(ctx context.Context, msg DetectMessage) error {
	run := store.PipelineRun{
		ID:        util.NewID(),
		Source:    "detect",
		Status:    store.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := p.Store.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record pipeline run: %w", err)
	}

	var rep detect.Report
	if len(msg.Detectors) == 0 {
		rep = detect.DetectAll(ctx, p.Store, p.Params)
	} else {
		rep = p.runSelected(ctx, msg.Detectors)
	}

	var runErr error
	switch {
	case len(rep.Failures) == len(rep.Flags):
		runErr = fmt.Errorf("%w: every detector failed", common.ErrStoreUnavailable)
	case len(msg.Detectors) == 0 && len(rep.Failures) == 0:
		runErr = detect.Persist(ctx, p.Store, rep)
	default:
		runErr = p.persistSelected(ctx, rep)
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	run.Details = map[string]any{
		"flags":     len(rep.All()),
		"detectors": len(rep.Flags),
		"failures":  rep.Failures,
	}
	run.Status = store.RunSucceeded
	if runErr != nil {
		run.Status = store.RunFailed
		run.Error = runErr.Error()
	}
	if err := p.Store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("[Queue] Failed to record pipeline run", "run_id", run.ID, "err", err)
	}
	return runErr
}

func (p *Processor) runSelected(ctx context.Context, names []string) detect.Report {
	rep := detect.Report{Flags: map[string][]common.RedFlag{}, Failures: map[string]string{}}
	start := time.Now()
	for _, name := range names {
		flags, err := detect.RunDetector(ctx, p.Store, name, p.Params)
		if err != nil {
			rep.Failures[name] = err.Error()
			flags = []common.RedFlag{}
		}
		rep.Flags[name] = flags
	}
	rep.Took = time.Since(start)
	return rep
}

// persistSelected replaces the stored flags of the detectors that ran
// successfully in rep and keeps those of every other detector.
func (p *Processor) persistSelected(ctx context.Context, rep detect.Report) error {
	stored, err := p.Store.ListFlags(ctx, "", 0)
	if err != nil {
		return err
	}
	var merged []store.StoredFlag
	for _, e := range stored {
		ref := common.EntityRef{ID: e.EntityID, Name: e.EntityName, Type: e.EntityType}
		for _, f := range e.Flags {
			name, _ := detect.DetectorOf(f.Type)
			_, rerun := rep.Flags[name]
			_, failed := rep.Failures[name]
			if !rerun || failed {
				merged = append(merged, store.StoredFlag{Entity: ref, Flag: f})
			}
		}
	}
	for name, flags := range rep.Flags {
		if _, failed := rep.Failures[name]; failed {
			continue
		}
		for _, f := range flags {
			merged = append(merged, store.StoredFlag{Entity: f.Subject(), Flag: f})
		}
	}
	if err := p.Store.ReplaceFlags(ctx, merged); err != nil {
		return fmt.Errorf("persist red flags: %w", err)
	}
	logger.Info("[Queue] Persisted red flags", "count", len(merged), "rerun", len(rep.Flags))
	return nil
}
