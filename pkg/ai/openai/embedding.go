package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model. Blank input yields a zero vector.
//
// Example:
//
//	embedding, err := client.GenerateEmbedding(ctx, []byte("DPWH Region VII road contracts"))
func (c *GraphOpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	res, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(res))
	}
	return res[0], nil
}

// GenerateEmbeddings creates embeddings for multiple inputs in a single
// request. It backs the embedding backfill of node descriptions.
func (c *GraphOpenAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("%w: embedding endpoint has no api key", ai.ErrNotConfigured)
	}

	idxMap := make([]int, 0, len(inputs))
	stringsIn := make([]string, 0, len(inputs))
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(string(in)) == "" {
			out[i] = make([]float32, c.embeddingDim)
			continue
		}
		idxMap = append(idxMap, i)
		stringsIn = append(stringsIn, string(in))
	}
	if len(stringsIn) == 0 {
		return out, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.embeddingLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.embeddingLock.Release(1)

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(rCtx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: stringsIn},
		Model:      c.embeddingModel,
		Dimensions: openai.Int(int64(c.embeddingDim)),
	})
	if err != nil {
		return nil, err
	}
	c.Record(int(response.Usage.PromptTokens), 0, time.Since(start).Milliseconds())

	if len(response.Data) != len(stringsIn) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(stringsIn))
	}
	for _, embedding := range response.Data {
		idx := int(embedding.Index)
		if idx < 0 || idx >= len(stringsIn) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		out[idxMap[idx]] = ai.FitDimensions(embedding.Embedding, c.embeddingDim)
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return out, nil
}
