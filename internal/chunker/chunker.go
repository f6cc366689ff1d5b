// Package chunker splits extracted page text into overlapping,
// page-scoped retrieval units.
//
// Chunks are cut on a fixed grid: a window of Size characters sliding
// by Size - Overlap across each page independently, so chunk count and
// offsets are fully determined by the page length. When the grid would
// cut inside a word, the window end backs up to the nearest whitespace,
// at most Overlap characters, which keeps the retracted tail inside the
// next window and loses no text. Chunks never cross page boundaries.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Epistemic-Technology/critique-mcp/models"
)

// ErrInvalidConfiguration is returned for chunk parameters the
// pipeline cannot run with.
var ErrInvalidConfiguration = errors.New("invalid chunk configuration")

// Config holds the chunking parameters. Size and Overlap are character
// (rune) counts.
type Config struct {
	Size    int
	Overlap int
}

// DefaultConfig returns the standard chunking parameters.
func DefaultConfig() Config {
	return Config{Size: 500, Overlap: 100}
}

// Validate rejects configurations that cannot produce a valid window.
func (c Config) Validate() error {
	if c.Size <= 0 || c.Overlap <= 0 {
		return fmt.Errorf("%w: size and overlap must be positive (got size=%d overlap=%d)", ErrInvalidConfiguration, c.Size, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap (%d) must be less than size (%d)", ErrInvalidConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// Chunk splits every page's text into overlapping chunks. Pages with
// no non-whitespace text yield no chunks. Offsets and lengths are in
// runes relative to the page text. Deterministic: identical input and
// parameters always produce the identical chunk sequence.
func Chunk(pages []models.Page, cfg Config) ([]models.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for _, page := range pages {
		chunks = append(chunks, chunkPage(page, cfg)...)
	}
	return chunks, nil
}

func chunkPage(page models.Page, cfg Config) []models.Chunk {
	if strings.TrimSpace(page.Text) == "" {
		return nil
	}

	runes := []rune(page.Text)
	l := len(runes)
	step := cfg.Size - cfg.Overlap

	var chunks []models.Chunk
	pos := 0
	for i := 0; ; i++ {
		end := min(pos+cfg.Size, l)
		cut := adjustCut(runes, pos, end, cfg.Overlap)

		chunks = append(chunks, models.Chunk{
			ID:         fmt.Sprintf("page-%d-chunk-%d", page.Number, i),
			Text:       string(runes[pos:cut]),
			PageNumber: page.Number,
			Offset:     pos,
			Length:     cut - pos,
		})

		if end >= l {
			break
		}
		pos += step
	}
	return chunks
}

// adjustCut backs the window end up to the nearest whitespace when the
// grid cut lands inside a word. The retraction never exceeds overlap,
// so the dropped tail is always re-covered by the next window. If no
// whitespace is near, the hard cut stands.
func adjustCut(runes []rune, start, end, overlap int) int {
	if end >= len(runes) {
		return end
	}
	if unicode.IsSpace(runes[end]) || unicode.IsSpace(runes[end-1]) {
		return end
	}
	for j := end - 1; j > end-overlap && j > start; j-- {
		if unicode.IsSpace(runes[j]) {
			return j
		}
	}
	return end
}
