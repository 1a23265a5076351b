package ollama

import (
	"context"
	"strings"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama. The vector is truncated or
// zero padded to the configured dimension; blank input yields zeros.
func (c *GraphOllamaClient) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	out := make([]float32, c.embeddingDim)
	if strings.TrimSpace(string(input)) == "" {
		return out, nil
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	})
	if err != nil {
		return nil, err
	}
	c.Record(res.PromptEvalCount, 0, res.TotalDuration.Milliseconds())

	if len(res.Embeddings) > 0 {
		copy(out, res.Embeddings[0])
	}
	return out, nil
}
