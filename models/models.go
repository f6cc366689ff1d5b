package models

// BoundingBox is a rectangle in page coordinate space, origin at the
// top-left corner of the page, units as supplied by the extractor.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextSpan is one positioned run of text on a page.
type TextSpan struct {
	Text string      `json:"text"`
	Box  BoundingBox `json:"box"`
}

// Page is the unit of extracted document content. Pages are immutable
// once extracted: Spans is ordered by reading position and its texts
// join (whitespace-separated) into Text.
type Page struct {
	Number int        `json:"number"`
	Text   string     `json:"text"`
	Spans  []TextSpan `json:"spans,omitempty"`
}

// Chunk is a page-scoped span of extracted text, the atomic retrieval
// unit. Chunks never cross page boundaries; consecutive chunks from the
// same page overlap by a fixed stride.
type Chunk struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
	Offset     int    `json:"offset"`
	Length     int    `json:"length"`
}

// EmbeddingRecord pairs a chunk with its vector. Every chunk in an
// index has exactly one record; all vectors share one dimensionality.
type EmbeddingRecord struct {
	ChunkID    string    `json:"chunk_id"`
	Vector     []float64 `json:"vector"`
	PageNumber int       `json:"page_number"`
}

// ScoredChunk is one retrieval hit.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Color is an RGBA highlight color with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// HighlightColor returns the annotation color for a severity.
func HighlightColor(s Severity) Color {
	switch s {
	case SeverityCritical:
		return Color{R: 1, G: 0, B: 0, A: 0.3}
	case SeverityMajor:
		return Color{R: 1, G: 0.5, B: 0, A: 0.3}
	case SeverityMinor:
		return Color{R: 1, G: 1, B: 0, A: 0.3}
	default:
		return Color{R: 1, G: 0.5, B: 0, A: 0.3}
	}
}

// Finding is a structured critique item extracted from generated text,
// anchored by a quoted excerpt. PageHint is 0 when the critique gave no
// page reference.
type Finding struct {
	Quote    string   `json:"quote"`
	Severity Severity `json:"severity"`
	Comment  string   `json:"comment,omitempty"`
	PageHint int      `json:"page_hint,omitempty"`
}

// Mark is a page-localized visual annotation derived from a Finding.
// A finding matched across several text spans yields several Marks with
// the same color; the note text rides on the first Mark of the group.
type Mark struct {
	PageNumber int         `json:"page_number"`
	Box        BoundingBox `json:"box"`
	Color      Color       `json:"color"`
	Note       string      `json:"note,omitempty"`
}

// ReviewMode selects the critique perspective, which fixes the prompt
// template and the default retrieval query.
type ReviewMode string

const (
	ModeFullReview       ReviewMode = "full_review"
	ModeMethodology      ReviewMode = "methodology"
	ModeWritingQuality   ReviewMode = "writing_quality"
	ModeCitationCheck    ReviewMode = "citation_check"
	ModeConsistencyCheck ReviewMode = "consistency_check"
	ModeAlignmentCheck   ReviewMode = "alignment_check"
	ModeCustom           ReviewMode = "custom"
)

// ReviewModes lists every mode in presentation order.
func ReviewModes() []ReviewMode {
	return []ReviewMode{
		ModeFullReview,
		ModeMethodology,
		ModeWritingQuality,
		ModeCitationCheck,
		ModeConsistencyCheck,
		ModeAlignmentCheck,
		ModeCustom,
	}
}

// ValidReviewMode reports whether s names a known review mode.
func ValidReviewMode(s string) bool {
	for _, m := range ReviewModes() {
		if string(m) == s {
			return true
		}
	}
	return false
}

// RewriteSuggestion is an "original" -> "improved" pair parsed from a
// critique. PageHint is 0 when no page reference appeared nearby.
type RewriteSuggestion struct {
	Original  string `json:"original"`
	Suggested string `json:"suggested"`
	PageHint  int    `json:"page_hint,omitempty"`
}

// SectionSummary is one heading-delimited section of a critique.
type SectionSummary struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Critique is the buffered result of one generation request. Text is
// always present verbatim; Findings and Rewrites are best-effort parses
// of it.
type Critique struct {
	Mode     ReviewMode          `json:"mode"`
	Text     string              `json:"text"`
	Findings []Finding           `json:"findings,omitempty"`
	Rewrites []RewriteSuggestion `json:"rewrites,omitempty"`
}
