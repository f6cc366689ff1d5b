// Package ingest turns raw PDF bytes into positioned page text. It
// validates the document with pdfcpu before extraction and walks pages
// with ledongthuc/pdf, collecting text rows into spans with
// top-left-origin bounding boxes. It does no chunking, storage, or
// interpretation of the text.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

var (
	// ErrDocumentTooLarge rejects documents over the byte ceiling.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
	// ErrTooManyPages rejects documents over the page ceiling.
	ErrTooManyPages = errors.New("document exceeds page limit")
	// ErrEncrypted rejects password-protected documents.
	ErrEncrypted = errors.New("document is encrypted")
)

const (
	// DefaultMaxBytes and DefaultMaxPages apply when the extractor is
	// constructed without explicit ceilings.
	DefaultMaxBytes = 10 << 20
	DefaultMaxPages = 50

	// letterHeight stands in for pages whose MediaBox is missing.
	letterHeight = 792.0
	// defaultFontSize stands in for text rows that report no size.
	defaultFontSize = 12.0
)

// Extractor converts PDF bytes into pages, enforcing upload ceilings
// before any content is returned.
type Extractor struct {
	maxBytes int64
	maxPages int
	log      logger.Logger
}

// NewExtractor creates an extractor. Non-positive ceilings fall back to
// the defaults.
func NewExtractor(maxBytes int64, maxPages int, log logger.Logger) *Extractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Extractor{maxBytes: maxBytes, maxPages: maxPages, log: log}
}

// Extract validates data and returns one Page per document page, in
// order, numbered from 1. Pages that yield no text are kept empty so
// numbering stays aligned with the document.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]models.Page, error) {
	if len(data) == 0 {
		return nil, errors.New("document is empty")
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrDocumentTooLarge, len(data), e.maxBytes)
	}
	if typ := DetectType(data); typ != "pdf" {
		return nil, fmt.Errorf("unsupported document type %q: only PDF is supported", typ)
	}

	pageCount, err := validate(data)
	if err != nil {
		return nil, err
	}
	if pageCount > e.maxPages {
		return nil, fmt.Errorf("%w: %d pages (limit %d)", ErrTooManyPages, pageCount, e.maxPages)
	}

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}

	n := reader.NumPage()
	if n > e.maxPages {
		return nil, fmt.Errorf("%w: %d pages (limit %d)", ErrTooManyPages, n, e.maxPages)
	}

	pages := make([]models.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, e.extractPage(reader.Page(i), i))
	}

	e.log.Info("Extracted %d pages from %d byte document", len(pages), len(data))
	return pages, nil
}

// validate runs the document through pdfcpu and returns its page count.
// Encrypted documents are reported distinctly; everything else pdfcpu
// rejects surfaces as a wrapped validation error.
func validate(data []byte) (int, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
			return 0, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return 0, fmt.Errorf("validating document: %w", err)
	}
	return pdfCtx.PageCount, nil
}

// extractPage builds one Page from positioned text rows. Rows are
// ordered top to bottom, fragments within a row left to right, and the
// row texts join into Page.Text with single newlines. When positioned
// extraction fails the page falls back to plain text without spans.
func (e *Extractor) extractPage(page pdflib.Page, number int) models.Page {
	if page.V.IsNull() {
		return models.Page{Number: number}
	}

	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		text, terr := page.GetPlainText(nil)
		if terr != nil {
			e.log.Warn("Page %d has no extractable text: %v", number, terr)
			return models.Page{Number: number}
		}
		return models.Page{Number: number, Text: strings.TrimSpace(text)}
	}

	sorted := make([]*pdflib.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})

	height := mediaBoxHeight(page)

	var spans []models.TextSpan
	for _, row := range sorted {
		if span, ok := rowSpan(row.Content, row.Position, height); ok {
			spans = append(spans, span)
		}
	}
	if len(spans) == 0 {
		return models.Page{Number: number}
	}

	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	return models.Page{Number: number, Text: strings.Join(texts, "\n"), Spans: spans}
}

// rowSpan collapses one text row into a span: fragments concatenate in
// x order, the box covers the row's horizontal extent, and the PDF
// bottom-left y flips to a top-left origin using the page height.
func rowSpan(content []pdflib.Text, position int64, pageHeight float64) (models.TextSpan, bool) {
	if len(content) == 0 {
		return models.TextSpan{}, false
	}

	frags := make([]pdflib.Text, len(content))
	copy(frags, content)
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].X < frags[j].X
	})

	var sb strings.Builder
	minX, maxX := frags[0].X, frags[0].X+frags[0].W
	size := 0.0
	for _, t := range frags {
		sb.WriteString(t.S)
		if t.X < minX {
			minX = t.X
		}
		if right := t.X + t.W; right > maxX {
			maxX = right
		}
		if t.FontSize > size {
			size = t.FontSize
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return models.TextSpan{}, false
	}
	if size <= 0 {
		size = defaultFontSize
	}

	y := pageHeight - float64(position) - size
	if y < 0 {
		y = 0
	}
	return models.TextSpan{
		Text: text,
		Box: models.BoundingBox{
			X:      minX,
			Y:      y,
			Width:  maxX - minX,
			Height: size,
		},
	}, true
}

// mediaBoxHeight resolves the page height from the MediaBox, walking up
// the page tree for inherited values.
func mediaBoxHeight(page pdflib.Page) float64 {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.IsNull() || mb.Len() < 4 {
			continue
		}
		if h := mb.Index(3).Float64() - mb.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return letterHeight
}
