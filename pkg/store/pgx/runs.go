package pgx

import (
	"context"
	"encoding/json"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const upsertRunSQL = `
INSERT INTO pipeline_runs (id, source, status, records, skipped, nodes, edges, error, details, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE
SET status      = EXCLUDED.status,
    records     = EXCLUDED.records,
    skipped     = EXCLUDED.skipped,
    nodes       = EXCLUDED.nodes,
    edges       = EXCLUDED.edges,
    error       = EXCLUDED.error,
    details     = EXCLUDED.details,
    finished_at = EXCLUDED.finished_at
`

// RecordRun inserts a run or updates it by id as it progresses.
func (s *Store) RecordRun(ctx context.Context, run store.PipelineRun) error {
	details := run.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, upsertRunSQL,
		run.ID, run.Source, string(run.Status), run.Records, run.Skipped, run.Nodes, run.Edges,
		run.Error, string(raw), run.StartedAt, run.FinishedAt)
	if err != nil {
		return common.StoreError("record run", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, `
SELECT id, source, status, records, skipped, nodes, edges, error, details, started_at, finished_at
FROM pipeline_runs
ORDER BY started_at DESC, id
LIMIT $1`, limit)
	if err != nil {
		return nil, common.StoreError("list runs", err)
	}
	defer rows.Close()

	var out []store.PipelineRun
	for rows.Next() {
		var (
			r      store.PipelineRun
			status string
			raw    []byte
		)
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Records, &r.Skipped, &r.Nodes, &r.Edges,
			&r.Error, &raw, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, common.StoreError("list runs", err)
		}
		r.Status = store.RunStatus(status)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &r.Details)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError("list runs", err)
	}
	return out, nil
}
