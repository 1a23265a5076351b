package graph

import (
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
)

// batch accumulates the nodes and edges built from one ingest run. Repeated
// ids are folded when the batch is written.
type batch struct {
	nodes   []common.Node
	edges   []common.Edge
	derived map[common.EdgeType]int
}

func newBatch() *batch {
	return &batch{derived: make(map[common.EdgeType]int)}
}

func (b *batch) node(t common.NodeType, key string, props common.Properties) string {
	id := common.NodeID(t, key)
	if props == nil {
		props = common.Properties{}
	}
	b.nodes = append(b.nodes, common.Node{ID: id, Type: t, Properties: props})
	return id
}

func (b *batch) edge(t common.EdgeType, source, target string, props common.Properties, discriminator ...string) {
	if source == "" || target == "" || source == target {
		return
	}
	if props == nil {
		props = common.Properties{}
	}
	b.edges = append(b.edges, common.Edge{
		ID:         common.EdgeID(t, source, target, discriminator...),
		Type:       t,
		Source:     source,
		Target:     target,
		Properties: props,
	})
}

// undirected writes an unordered pair once, with the smaller id as source.
func (b *batch) undirected(t common.EdgeType, x, y string, props common.Properties) {
	if x > y {
		x, y = y, x
	}
	b.edge(t, x, y, props)
	b.derived[t]++
}

// contractorKey is the natural key of a contractor name.
func contractorKey(name string) string {
	return normalize.ContractorName(name)
}

// personKey is the natural key of a politician or private person.
func personKey(name string) string {
	return normalize.PoliticianName(name)
}

// agencyKey uppercases and collapses whitespace so spelling variants of the
// same procuring entity share one node.
func agencyKey(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// pick copies the populated fields of r. Numeric fields are parsed so the
// store holds numbers, and date fields are rewritten as YYYY-MM-DD.
func pick(r common.Record, text []string, numeric []string, dates []string) common.Properties {
	p := common.Properties{}
	for _, k := range text {
		if v := r.Text(k); v != "" {
			p[k] = v
		}
	}
	for _, k := range numeric {
		if v, ok := r.Float(k); ok {
			p[k] = v
		}
	}
	for _, k := range dates {
		if t, ok := r.Time(k); ok {
			p[k] = t.Format("2006-01-02")
		} else if v := r.Text(k); v != "" {
			p[k] = v
		}
	}
	return p
}
