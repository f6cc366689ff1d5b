package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
)

// Embed vectorizes texts with the configured embedding model. Inputs
// are grouped into batches of at most EmbedBatchSize and the batches
// are issued sequentially; the result keeps input order and has
// exactly one vector per text. Deterministic for identical input.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		tokens := estimateTokens(batch)
		if tokens > embedBurstTokens {
			tokens = embedBurstTokens
		}
		if err := c.pacer.WaitN(ctx, tokens); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.log.Debug("Embedding batch %d-%d of %d texts", start, end, len(texts))
		resp, err := WithRetry(ctx, c.log, func(ctx context.Context) (*openai.CreateEmbeddingResponse, error) {
			resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
				Model: openai.EmbeddingModel(c.embeddingModel),
				Input: openai.EmbeddingNewParamsInputUnion{
					OfArrayOfStrings: batch,
				},
			})
			if err != nil {
				return nil, classify(err, "embeddings")
			}
			return resp, nil
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("embeddings returned %d vectors for %d inputs", len(resp.Data), len(batch))
		}

		// The API reports an index per vector; honor it rather than
		// assuming response order.
		vectors := make([][]float64, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || int(d.Index) >= len(batch) {
				return nil, fmt.Errorf("embeddings returned out-of-range index %d", d.Index)
			}
			vectors[d.Index] = d.Embedding
		}
		for i, v := range vectors {
			if v == nil {
				return nil, fmt.Errorf("embeddings returned no vector for input %d", start+i)
			}
		}
		out = append(out, vectors...)
	}

	return out, nil
}
