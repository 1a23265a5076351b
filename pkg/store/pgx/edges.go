package pgx

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

const upsertEdgesSQL = `
INSERT INTO graph_edges (id, type, source, target, properties)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::jsonb[])
ON CONFLICT (id) DO UPDATE
SET properties = graph_edges.properties || EXCLUDED.properties,
    updated_at = now()
`

const selectEdgeColumns = `SELECT id, type, source, target, properties FROM graph_edges`

func (s *Store) UpsertEdges(ctx context.Context, edges []common.Edge) error {
	edges = store.MergeEdges(edges)
	return store.ChunkRange(len(edges), s.batchSize, func(start, end int) error {
		chunk := edges[start:end]
		ids := make([]string, len(chunk))
		types := make([]string, len(chunk))
		sources := make([]string, len(chunk))
		targets := make([]string, len(chunk))
		props := make([]string, len(chunk))
		for i, e := range chunk {
			p := e.Properties
			if p == nil {
				p = common.Properties{}
			}
			raw, err := json.Marshal(sanitize(p))
			if err != nil {
				return errors.Join(common.ErrMalformedInput, err)
			}
			ids[i] = e.ID
			types[i] = string(e.Type)
			sources[i] = e.Source
			targets[i] = e.Target
			props[i] = string(raw)
		}

		logger.Debug("[Store][UpsertEdges] Saving chunk", "edges", len(chunk))
		if _, err := s.conn.Exec(ctx, upsertEdgesSQL, ids, types, sources, targets, props); err != nil {
			return common.StoreError("upsert edges", err)
		}
		return nil
	})
}

func (s *Store) EdgesByType(ctx context.Context, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	return s.queryEdges(ctx, "edges by type",
		selectEdgeColumns+` WHERE cardinality($1::text[]) = 0 OR type = ANY($1) ORDER BY id`,
		edgeTypeStrings(edgeTypes))
}

func (s *Store) Neighbors(ctx context.Context, ids []string, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	ids = store.DedupeStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryEdges(ctx, "neighbors",
		selectEdgeColumns+`
WHERE (source = ANY($1) OR target = ANY($1))
  AND (cardinality($2::text[]) = 0 OR type = ANY($2))
ORDER BY id`,
		ids, edgeTypeStrings(edgeTypes))
}

func (s *Store) queryEdges(ctx context.Context, op, sql string, args ...any) ([]common.Edge, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, common.StoreError(op, err)
	}
	defer rows.Close()

	var out []common.Edge
	for rows.Next() {
		var (
			e   common.Edge
			typ string
			raw []byte
		)
		if err := rows.Scan(&e.ID, &typ, &e.Source, &e.Target, &raw); err != nil {
			return nil, common.StoreError(op, err)
		}
		e.Type = common.EdgeType(typ)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Properties); err != nil {
				return nil, common.StoreError(op, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError(op, err)
	}
	return out, nil
}

func edgeTypeStrings(types []common.EdgeType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
