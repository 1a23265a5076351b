package neo4j

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ReplaceFlags swaps all :RedFlag nodes in one write transaction.
func (s *Store) ReplaceFlags(ctx context.Context, flags []store.StoredFlag) error {
	rows := make([]map[string]any, 0, len(flags))
	for _, f := range flags {
		raw, err := json.Marshal(f.Flag)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]any{
			"entity_id":   f.Entity.ID,
			"entity_name": f.Entity.Name,
			"entity_type": string(f.Entity.Type),
			"severity":    string(f.Flag.Severity),
			"flag":        string(raw),
		})
	}

	err := s.writeTx(ctx, func(tx neo4j.ManagedTransaction) error {
		if _, err := tx.Run(ctx, `MATCH (f:RedFlag) DETACH DELETE f`, nil); err != nil {
			return err
		}
		return store.ChunkRange(len(rows), s.batchSize, func(start, end int) error {
			_, err := tx.Run(ctx, `
UNWIND $rows AS row
CREATE (f:RedFlag)
SET f = row
WITH f
MATCH (n:Entity {id: f.entity_id})
MERGE (n)-[:HAS_FLAG]->(f)`, map[string]any{"rows": rows[start:end]})
			return err
		})
	})
	if err != nil {
		return common.StoreError("replace flags", err)
	}
	return nil
}

func (s *Store) ListFlags(ctx context.Context, severity common.Severity, limit int) ([]common.FlaggedEntity, error) {
	records, err := s.read(ctx, `
MATCH (f:RedFlag)
WHERE $severity = '' OR f.severity = $severity
RETURN f.entity_id AS id, f.entity_name AS name, f.entity_type AS type, f.flag AS flag
ORDER BY id`, map[string]any{"severity": string(severity)})
	if err != nil {
		return nil, common.StoreError("list flags", err)
	}

	stored := make([]store.StoredFlag, 0, len(records))
	for _, rec := range records {
		m := rec.AsMap()
		f := store.StoredFlag{Entity: common.EntityRef{
			ID:   asString(m["id"]),
			Name: asString(m["name"]),
			Type: common.NodeType(asString(m["type"])),
		}}
		if err := json.Unmarshal([]byte(asString(m["flag"])), &f.Flag); err != nil {
			return nil, common.StoreError("list flags", err)
		}
		stored = append(stored, f)
	}
	return store.GroupFlags(stored, severity, limit), nil
}

func (s *Store) RecordRun(ctx context.Context, run store.PipelineRun) error {
	details, err := json.Marshal(run.Details)
	if err != nil {
		return err
	}
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	err = s.write(ctx, `
MERGE (r:PipelineRun {id: $id})
SET r.source = $source, r.status = $status, r.records = $records, r.skipped = $skipped,
    r.nodes = $nodes, r.edges = $edges, r.error = $error, r.details = $details,
    r.started_at = $started_at, r.finished_at = $finished_at`, map[string]any{
		"id":          run.ID,
		"source":      run.Source,
		"status":      string(run.Status),
		"records":     int64(run.Records),
		"skipped":     int64(run.Skipped),
		"nodes":       int64(run.Nodes),
		"edges":       int64(run.Edges),
		"error":       run.Error,
		"details":     string(details),
		"started_at":  run.StartedAt.UTC(),
		"finished_at": finished,
	})
	if err != nil {
		return common.StoreError("record run", err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.read(ctx, `
MATCH (r:PipelineRun)
RETURN properties(r) AS p
ORDER BY r.started_at DESC, r.id
LIMIT $limit`, map[string]any{"limit": limit})
	if err != nil {
		return nil, common.StoreError("list runs", err)
	}

	out := make([]store.PipelineRun, 0, len(records))
	for _, rec := range records {
		p, _ := rec.AsMap()["p"].(map[string]any)
		run := store.PipelineRun{
			ID:      asString(p["id"]),
			Source:  asString(p["source"]),
			Status:  store.RunStatus(asString(p["status"])),
			Records: int(asInt(p["records"])),
			Skipped: int(asInt(p["skipped"])),
			Nodes:   int(asInt(p["nodes"])),
			Edges:   int(asInt(p["edges"])),
			Error:   asString(p["error"]),
		}
		if t, ok := p["started_at"].(time.Time); ok {
			run.StartedAt = t
		}
		if t, ok := p["finished_at"].(time.Time); ok {
			run.FinishedAt = &t
		}
		if d := asString(p["details"]); d != "" && d != "null" {
			_ = json.Unmarshal([]byte(d), &run.Details)
		}
		out = append(out, run)
	}
	return out, nil
}
