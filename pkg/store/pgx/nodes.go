package pgx

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kwenta-ph/kwenta/backend/internal/util"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

const upsertNodesSQL = `
INSERT INTO graph_nodes (id, type, label, properties)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::jsonb[])
ON CONFLICT (id) DO UPDATE
SET properties = graph_nodes.properties || EXCLUDED.properties,
    label      = CASE WHEN EXCLUDED.label = '' THEN graph_nodes.label ELSE EXCLUDED.label END,
    updated_at = now()
`

const selectNodeColumns = `SELECT id, type, properties FROM graph_nodes`

// UpsertNodes writes nodes in batches, merging properties of existing ids.
func (s *Store) UpsertNodes(ctx context.Context, nodes []common.Node) error {
	nodes = store.MergeNodes(nodes)
	return store.ChunkRange(len(nodes), s.batchSize, func(start, end int) error {
		chunk := nodes[start:end]
		ids := make([]string, len(chunk))
		types := make([]string, len(chunk))
		labels := make([]string, len(chunk))
		props := make([]string, len(chunk))
		for i, n := range chunk {
			raw, err := json.Marshal(sanitize(n.Properties))
			if err != nil {
				return errors.Join(common.ErrMalformedInput, err)
			}
			ids[i] = n.ID
			types[i] = string(n.Type)
			if label := n.Label(); label != n.ID {
				labels[i] = util.SanitizePostgresText(label)
			}
			props[i] = string(raw)
		}

		logger.Debug("[Store][UpsertNodes] Saving chunk", "nodes", len(chunk))
		if _, err := s.conn.Exec(ctx, upsertNodesSQL, ids, types, labels, props); err != nil {
			return common.StoreError("upsert nodes", err)
		}
		return nil
	})
}

func (s *Store) GetNode(ctx context.Context, id string) (common.Node, error) {
	row := s.conn.QueryRow(ctx, selectNodeColumns+` WHERE id = $1`, id)
	n, err := scanNode(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Node{}, common.NotFoundf("node %s", id)
	}
	if err != nil {
		return common.Node{}, common.StoreError("get node", err)
	}
	return n, nil
}

func (s *Store) GetNodes(ctx context.Context, ids []string) ([]common.Node, error) {
	ids = store.DedupeStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryNodes(ctx, "get nodes", selectNodeColumns+` WHERE id = ANY($1) ORDER BY id`, ids)
}

func (s *Store) NodesByType(ctx context.Context, nodeType common.NodeType) ([]common.Node, error) {
	return s.queryNodes(ctx, "nodes by type", selectNodeColumns+` WHERE type = $1 ORDER BY id`, string(nodeType))
}

func (s *Store) queryNodes(ctx context.Context, op, sql string, args ...any) ([]common.Node, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, common.StoreError(op, err)
	}
	defer rows.Close()

	var out []common.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, common.StoreError(op, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError(op, err)
	}
	return out, nil
}

func scanNode(row pgxv5.Row) (common.Node, error) {
	var (
		n   common.Node
		typ string
		raw []byte
	)
	if err := row.Scan(&n.ID, &typ, &raw); err != nil {
		return n, err
	}
	n.Type = common.NodeType(typ)
	n.Properties = common.Properties{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &n.Properties); err != nil {
			return n, err
		}
	}
	return n, nil
}

// sanitize strips NUL bytes that PostgreSQL rejects in text and jsonb.
func sanitize(p common.Properties) common.Properties {
	out := make(common.Properties, len(p))
	for k, v := range p {
		if s, ok := v.(string); ok {
			v = util.SanitizePostgresText(s)
		}
		out[k] = v
	}
	return out
}
