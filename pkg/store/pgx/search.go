package pgx

import (
	"context"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const searchSQL = `
SELECT id, type, label,
       CASE
           WHEN lower(label) = $1 THEN 1.0
           WHEN lower(label) LIKE $1 || '%' THEN 0.8
           ELSE similarity(lower(label), $1)
       END AS score
FROM graph_nodes
WHERE ($2 = '' OR type = $2)
  AND (lower(label) LIKE '%' || $1 || '%' OR similarity(lower(label), $1) >= $4)
ORDER BY score DESC, id
LIMIT $3
`

func (s *Store) Search(ctx context.Context, query string, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.queryHits(ctx, "search", searchSQL, query, string(nodeType), limit, s.searchThreshold)
}

const saveEmbeddingSQL = `UPDATE graph_nodes SET embedding = $2 WHERE id = $1`

// SaveEmbeddings stores one vector per node id. Unknown ids are ignored.
func (s *Store) SaveEmbeddings(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return common.ErrMalformedInput
	}
	return store.ChunkRange(len(ids), s.batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for i := start; i < end; i++ {
			batch.Queue(saveEmbeddingSQL, ids[i], pgvector.NewVector(vectors[i]))
		}
		br := s.conn.SendBatch(ctx, batch)
		defer br.Close()
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				return common.StoreError("save embeddings", err)
			}
		}
		return nil
	})
}

const similarSQL = `
SELECT id, type, label, 1 - (embedding <=> $1) AS score
FROM graph_nodes
WHERE embedding IS NOT NULL AND ($2 = '' OR type = $2)
ORDER BY embedding <=> $1, id
LIMIT $3
`

func (s *Store) SearchSimilar(ctx context.Context, vector []float32, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryHits(ctx, "search similar", similarSQL, pgvector.NewVector(vector), string(nodeType), limit)
}

func (s *Store) queryHits(ctx context.Context, op, sql string, args ...any) ([]common.SearchHit, error) {
	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, common.StoreError(op, err)
	}
	defer rows.Close()

	var out []common.SearchHit
	for rows.Next() {
		var (
			h   common.SearchHit
			typ string
		)
		if err := rows.Scan(&h.ID, &typ, &h.Name, &h.Score); err != nil {
			return nil, common.StoreError(op, err)
		}
		h.Type = common.NodeType(typ)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, common.StoreError(op, err)
	}
	return out, nil
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	c := store.Counts{
		Nodes: make(map[common.NodeType]int),
		Edges: make(map[common.EdgeType]int),
	}
	for _, q := range []struct {
		sql string
		add func(string, int)
	}{
		{`SELECT type, count(*) FROM graph_nodes GROUP BY type`, func(t string, n int) { c.Nodes[common.NodeType(t)] = n }},
		{`SELECT type, count(*) FROM graph_edges GROUP BY type`, func(t string, n int) { c.Edges[common.EdgeType(t)] = n }},
	} {
		rows, err := s.conn.Query(ctx, q.sql)
		if err != nil {
			return c, common.StoreError("counts", err)
		}
		for rows.Next() {
			var (
				t string
				n int
			)
			if err := rows.Scan(&t, &n); err != nil {
				rows.Close()
				return c, common.StoreError("counts", err)
			}
			q.add(t, n)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return c, common.StoreError("counts", err)
		}
	}
	return c, nil
}
