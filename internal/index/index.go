// Package index holds the per-document embedding index: one vector
// per chunk, cosine similarity search, write-once-then-read-many.
// A new document means a full rebuild; there is no incremental update.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

var (
	// ErrEmptyIndex is returned when querying an index with no chunks.
	ErrEmptyIndex = errors.New("index has no chunks")
	// ErrInvalidQuery is returned for queries the index cannot answer.
	ErrInvalidQuery = errors.New("invalid query")
)

// Embedder is the external embedding capability: deterministic for
// identical input, one vector per text, batch-friendly.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Index pairs chunks with their vectors. Build it once per document,
// then query; it is never mutated after Build returns. The index keeps
// the embedder it was built with so queries embed against the same
// model the chunks were.
type Index struct {
	embedder Embedder
	chunks   []models.Chunk
	records  []models.EmbeddingRecord
	dims     int
}

// Build embeds every chunk and assembles the index. Chunk order is
// preserved; it is the tie-break order for queries.
func Build(ctx context.Context, embedder Embedder, chunks []models.Chunk, log logger.Logger) (*Index, error) {
	if len(chunks) == 0 {
		return &Index{embedder: embedder}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	log.Info("Building index for %d chunks", len(chunks))
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dims := len(vectors[0])
	records := make([]models.EmbeddingRecord, len(chunks))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dims)
		}
		records[i] = models.EmbeddingRecord{
			ChunkID:    chunks[i].ID,
			Vector:     v,
			PageNumber: chunks[i].PageNumber,
		}
	}

	return &Index{
		embedder: embedder,
		chunks:   append([]models.Chunk(nil), chunks...),
		records:  records,
		dims:     dims,
	}, nil
}

// Len reports the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Query embeds the query text and returns the top k chunks by cosine
// similarity, scores descending. Ties break by original chunk order,
// so repeated queries on an unchanged index return identical results.
// k larger than the chunk count is clamped.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	if ix.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1 (got %d)", ErrInvalidQuery, k)
	}
	if k > ix.Len() {
		k = ix.Len()
	}

	vectors, err := ix.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	qv := vectors[0]

	scored := make([]models.ScoredChunk, len(ix.chunks))
	for i, rec := range ix.records {
		scored[i] = models.ScoredChunk{
			Chunk: ix.chunks[i],
			Score: cosine(qv, rec.Vector),
		}
	}
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	return scored[:k], nil
}

// cosine computes cosine similarity between two vectors. A zero
// magnitude on either side scores 0.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
