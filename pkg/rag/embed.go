package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
	"github.com/kwenta-ph/kwenta/backend/pkg/store"
)

// EmbeddedTypes are the node types looked up by name, and therefore
// embedded for similarity search.
var EmbeddedTypes = []common.NodeType{
	common.NodePolitician,
	common.NodePoliticalFamily,
	common.NodeMunicipality,
	common.NodeAgency,
	common.NodeContractor,
	common.NodePerson,
}

const embedBatch = 100

// embeddingText is what a node is embedded as: its label qualified by type,
// so "Cebu" the municipality and "Cebu" the agency stay apart.
func embeddingText(n common.Node) string {
	return fmt.Sprintf("%s: %s", n.Type, n.Label())
}

// IndexEmbeddings embeds every node of EmbeddedTypes and saves the vectors
// in batches. It returns the number of nodes embedded.
func IndexEmbeddings(ctx context.Context, reader store.GraphReader, vectors store.VectorStore, client ai.GraphAIClient, parallel int) (int, error) {
	if parallel <= 0 {
		parallel = 4
	}
	var nodes []common.Node
	for _, t := range EmbeddedTypes {
		ns, err := reader.NodesByType(ctx, t)
		if err != nil {
			return 0, err
		}
		nodes = append(nodes, ns...)
	}

	done := 0
	for start := 0; start < len(nodes); start += embedBatch {
		batch := nodes[start:min(start+embedBatch, len(nodes))]
		ids := make([]string, len(batch))
		vecs := make([][]float32, len(batch))

		eg, gCtx := errgroup.WithContext(ctx)
		eg.SetLimit(parallel)
		for i, n := range batch {
			ids[i] = n.ID
			eg.Go(func() error {
				v, err := client.GenerateEmbedding(gCtx, []byte(embeddingText(n)))
				if err != nil {
					return fmt.Errorf("embed %s: %w", n.ID, err)
				}
				vecs[i] = v
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return done, err
		}
		if err := vectors.SaveEmbeddings(ctx, ids, vecs); err != nil {
			return done, err
		}
		done += len(batch)
		logger.Debug("[RAG] Saved embeddings", "done", done, "total", len(nodes))
	}
	return done, nil
}
