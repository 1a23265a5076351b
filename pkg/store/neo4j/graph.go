package neo4j

import (
	"context"
	"fmt"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// UpsertNodes merges nodes grouped by type. Labels cannot be parameterised
// in Cypher, so only validated NodeType values are spliced into the query.
func (s *Store) UpsertNodes(ctx context.Context, nodes []common.Node) error {
	byType := make(map[common.NodeType][]map[string]any)
	for _, n := range store.MergeNodes(nodes) {
		if !n.Type.Valid() {
			return fmt.Errorf("%w: unknown node type %q", common.ErrMalformedInput, n.Type)
		}
		label := n.Label()
		if label == n.ID {
			label = ""
		}
		byType[n.Type] = append(byType[n.Type], map[string]any{
			"id":    n.ID,
			"label": label,
			"props": toNeo4j(n.Properties),
		})
	}

	for _, t := range common.NodeTypes {
		rows := byType[t]
		cypher := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (n:Entity {id: row.id})
SET n:%s, n += row.props, n._type = $type,
    n._label = CASE WHEN row.label = '' THEN coalesce(n._label, '') ELSE row.label END`, t)
		err := store.ChunkRange(len(rows), s.batchSize, func(start, end int) error {
			logger.Debug("[Store][UpsertNodes] Saving chunk", "type", t, "nodes", end-start)
			return s.write(ctx, cypher, map[string]any{"rows": rows[start:end], "type": string(t)})
		})
		if err != nil {
			return common.StoreError("upsert nodes", err)
		}
	}
	return nil
}

// UpsertEdges merges relationships grouped by type. Missing endpoints are
// created as bare :Entity nodes and filled in when their record loads.
func (s *Store) UpsertEdges(ctx context.Context, edges []common.Edge) error {
	byType := make(map[common.EdgeType][]map[string]any)
	for _, e := range store.MergeEdges(edges) {
		if !e.Type.Valid() {
			return fmt.Errorf("%w: unknown edge type %q", common.ErrMalformedInput, e.Type)
		}
		byType[e.Type] = append(byType[e.Type], map[string]any{
			"id":     e.ID,
			"source": e.Source,
			"target": e.Target,
			"props":  toNeo4j(e.Properties),
		})
	}

	for _, t := range common.EdgeTypes {
		rows := byType[t]
		cypher := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (a:Entity {id: row.source})
MERGE (b:Entity {id: row.target})
MERGE (a)-[r:%s {id: row.id}]->(b)
SET r += row.props`, t)
		err := store.ChunkRange(len(rows), s.batchSize, func(start, end int) error {
			logger.Debug("[Store][UpsertEdges] Saving chunk", "type", t, "edges", end-start)
			return s.write(ctx, cypher, map[string]any{"rows": rows[start:end]})
		})
		if err != nil {
			return common.StoreError("upsert edges", err)
		}
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (common.Node, error) {
	nodes, err := s.GetNodes(ctx, []string{id})
	if err != nil {
		return common.Node{}, err
	}
	if len(nodes) == 0 {
		return common.Node{}, common.NotFoundf("node %s", id)
	}
	return nodes[0], nil
}

func (s *Store) GetNodes(ctx context.Context, ids []string) ([]common.Node, error) {
	ids = store.DedupeStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryNodes(ctx, "get nodes",
		`MATCH (n:Entity) WHERE n.id IN $ids AND n._type IS NOT NULL RETURN properties(n) AS p ORDER BY n.id`,
		map[string]any{"ids": ids})
}

func (s *Store) NodesByType(ctx context.Context, nodeType common.NodeType) ([]common.Node, error) {
	return s.queryNodes(ctx, "nodes by type",
		`MATCH (n:Entity {_type: $type}) RETURN properties(n) AS p ORDER BY n.id`,
		map[string]any{"type": string(nodeType)})
}

func (s *Store) queryNodes(ctx context.Context, op, cypher string, params map[string]any) ([]common.Node, error) {
	records, err := s.read(ctx, cypher, params)
	if err != nil {
		return nil, common.StoreError(op, err)
	}
	out := make([]common.Node, 0, len(records))
	for _, rec := range records {
		props, _, err := neo4j.GetRecordValue[map[string]any](rec, "p")
		if err != nil {
			return nil, common.StoreError(op, err)
		}
		out = append(out, nodeFromProps(props))
	}
	return out, nil
}

const edgeReturn = `RETURN r.id AS id, type(r) AS type, a.id AS source, b.id AS target, properties(r) AS p ORDER BY r.id`

func (s *Store) EdgesByType(ctx context.Context, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	return s.queryEdges(ctx, "edges by type",
		`MATCH (a:Entity)-[r]->(b:Entity) WHERE size($types) = 0 OR type(r) IN $types `+edgeReturn,
		map[string]any{"types": edgeTypeStrings(edgeTypes)})
}

func (s *Store) Neighbors(ctx context.Context, ids []string, edgeTypes ...common.EdgeType) ([]common.Edge, error) {
	ids = store.DedupeStrings(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryEdges(ctx, "neighbors", `
MATCH (a:Entity)-[r]->(b:Entity)
WHERE (a.id IN $ids OR b.id IN $ids) AND (size($types) = 0 OR type(r) IN $types) `+edgeReturn,
		map[string]any{"ids": ids, "types": edgeTypeStrings(edgeTypes)})
}

func (s *Store) queryEdges(ctx context.Context, op, cypher string, params map[string]any) ([]common.Edge, error) {
	records, err := s.read(ctx, cypher, params)
	if err != nil {
		return nil, common.StoreError(op, err)
	}
	out := make([]common.Edge, 0, len(records))
	for _, rec := range records {
		m := rec.AsMap()
		e := common.Edge{
			ID:     asString(m["id"]),
			Type:   common.EdgeType(asString(m["type"])),
			Source: asString(m["source"]),
			Target: asString(m["target"]),
		}
		if props, ok := m["p"].(map[string]any); ok {
			e.Properties = fromNeo4j(props)
		}
		out = append(out, e)
	}
	return out, nil
}

// Search queries the entity_search full-text index with every term used as
// a prefix. Scores are scaled so the best hit is 1.
func (s *Store) Search(ctx context.Context, query string, nodeType common.NodeType, limit int) ([]common.SearchHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	for i, t := range terms {
		terms[i] = luceneEscaper.Replace(t) + "*"
	}
	if limit <= 0 {
		limit = 20
	}
	records, err := s.read(ctx, `
CALL db.index.fulltext.queryNodes('entity_search', $q) YIELD node, score
WHERE $type = '' OR node._type = $type
RETURN node.id AS id, node._type AS type, node._label AS name, score
ORDER BY score DESC, id
LIMIT $limit`, map[string]any{"q": strings.Join(terms, " AND "), "type": string(nodeType), "limit": limit})
	if err != nil {
		return nil, common.StoreError("search", err)
	}

	hits := make([]common.SearchHit, 0, len(records))
	var best float64
	for _, rec := range records {
		m := rec.AsMap()
		score, _ := m["score"].(float64)
		best = max(best, score)
		hits = append(hits, common.SearchHit{
			ID:    asString(m["id"]),
			Type:  common.NodeType(asString(m["type"])),
			Name:  asString(m["name"]),
			Score: score,
		})
	}
	if best > 0 {
		for i := range hits {
			hits[i].Score /= best
		}
	}
	return hits, nil
}

func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	c := store.Counts{
		Nodes: make(map[common.NodeType]int),
		Edges: make(map[common.EdgeType]int),
	}
	nodes, err := s.read(ctx, `MATCH (n:Entity) WHERE n._type IS NOT NULL RETURN n._type AS t, count(*) AS c`, nil)
	if err != nil {
		return c, common.StoreError("counts", err)
	}
	for _, rec := range nodes {
		m := rec.AsMap()
		c.Nodes[common.NodeType(asString(m["t"]))] = int(asInt(m["c"]))
	}
	edges, err := s.read(ctx, `MATCH (:Entity)-[r]->(:Entity) RETURN type(r) AS t, count(*) AS c`, nil)
	if err != nil {
		return c, common.StoreError("counts", err)
	}
	for _, rec := range edges {
		m := rec.AsMap()
		c.Edges[common.EdgeType(asString(m["t"]))] = int(asInt(m["c"]))
	}
	return c, nil
}

var luceneEscaper = strings.NewReplacer(
	`\`, `\\`, `+`, `\+`, `-`, `\-`, `&`, `\&`, `|`, `\|`, `!`, `\!`, `(`, `\(`, `)`, `\)`,
	`{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`, `^`, `\^`, `"`, `\"`, `~`, `\~`, `*`, `\*`,
	`?`, `\?`, `:`, `\:`, `/`, `\/`,
)

func edgeTypeStrings(types []common.EdgeType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	}
	return 0
}
