package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/critique-mcp/models"
)

// contextSeparator sits between passages in the assembled prompt
// context. The critique templates refer to passages by their page
// labels, so the separator and label format are part of the contract
// with the prompt layer.
const contextSeparator = "\n\n---\n\n"

// RetrievedContext is the result of a retrieval pass: the surviving
// chunks in rank order and the prompt-ready context string built from
// them.
type RetrievedContext struct {
	Chunks  []models.ScoredChunk
	Context string
}

// Retrieve runs a similarity query and shapes the results for prompt
// assembly: near-duplicate chunks collapse to their highest-ranked
// occurrence, and each survivor is labeled with its source page.
// A blank query is rejected; retrieval has nothing to rank it against.
func Retrieve(ctx context.Context, ix *Index, query string, k int) (*RetrievedContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrInvalidQuery)
	}

	scored, err := ix.Query(ctx, query, k)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(scored))
	kept := make([]models.ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		key := strings.Join(strings.Fields(sc.Chunk.Text), " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, sc)
	}

	parts := make([]string, len(kept))
	for i, sc := range kept {
		parts[i] = fmt.Sprintf("[Page %d]\n%s", sc.Chunk.PageNumber, sc.Chunk.Text)
	}

	return &RetrievedContext{
		Chunks:  kept,
		Context: strings.Join(parts, contextSeparator),
	}, nil
}
