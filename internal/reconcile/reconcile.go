// Package reconcile locates critique findings in extracted page text
// and projects them onto page geometry as highlight marks.
//
// Matching runs in a normalized space (case, whitespace, and
// typographic punctuation folded) and falls back from exact substring
// search to edit-distance alignment. A finding that cannot be located
// anywhere is reported per finding, never fatal.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
	"github.com/Epistemic-Technology/critique-mcp/internal/workpool"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

const (
	// DefaultThreshold is the minimum similarity for accepting a fuzzy
	// match.
	DefaultThreshold = 0.8

	// keyLimit caps how many normalized runes of a quote are searched.
	// Long quotes drift from the source toward their tail; the head
	// anchors reliably.
	keyLimit = 120

	// hintBefore and hintAfter bound the page window searched around a
	// finding's page hint. Critiques cite pages from chunk labels,
	// which can lag the true page when passages straddle boundaries.
	hintBefore = 2
	hintAfter  = 1
)

// fallbackBox is the mark geometry for pages without span data: a
// full-width band at the top of the page, inside typical margins.
var fallbackBox = models.BoundingBox{X: 36, Y: 36, Width: 523, Height: 24}

// MatchReport records where one finding landed. PageNumber and
// Similarity are zero when Matched is false.
type MatchReport struct {
	Finding    models.Finding `json:"finding"`
	Matched    bool           `json:"matched"`
	PageNumber int            `json:"page_number,omitempty"`
	Similarity float64        `json:"similarity,omitempty"`
}

// Result carries the marks for every located finding plus a per-finding
// report. Reports[i] corresponds to the i-th input finding; Marks are
// ordered by finding, then by span position within each match.
type Result struct {
	Marks   []models.Mark `json:"marks"`
	Reports []MatchReport `json:"reports"`
}

// MatchedCount returns how many findings were located on a page.
func (r *Result) MatchedCount() int {
	n := 0
	for _, rep := range r.Reports {
		if rep.Matched {
			n++
		}
	}
	return n
}

// Reconciler matches critique findings against extracted pages.
type Reconciler struct {
	threshold float64
	workers   int
	log       logger.Logger
}

// NewReconciler creates a reconciler. Thresholds at or below zero fall
// back to DefaultThreshold.
func NewReconciler(threshold float64, log logger.Logger) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Reconciler{threshold: threshold, log: log}
}

// Reconcile locates every finding and returns marks plus per-finding
// reports, in finding order. Findings are matched in parallel; the only
// error is a cancelled context.
func (r *Reconciler) Reconcile(ctx context.Context, findings []models.Finding, pages []models.Page) (*Result, error) {
	result := &Result{}
	if len(findings) == 0 {
		return result, nil
	}

	norms := make([]normText, len(pages))
	for i, p := range pages {
		norms[i] = normalize(p.Text)
	}

	outcomes, err := workpool.Map(ctx, findings, r.workers, r.log,
		func(_ context.Context, _ int, f models.Finding) (matchOutcome, error) {
			return r.locate(f, pages, norms), nil
		})
	if err != nil {
		return nil, fmt.Errorf("reconciling findings: %w", err)
	}

	for _, out := range outcomes {
		result.Reports = append(result.Reports, out.report)
		result.Marks = append(result.Marks, out.marks...)
	}

	r.log.Info("Reconciled %d of %d findings into %d marks",
		result.MatchedCount(), len(findings), len(result.Marks))
	return result, nil
}

type matchOutcome struct {
	report MatchReport
	marks  []models.Mark
}

// locate finds the page and text range for one finding. Pages near the
// hint are tried first and the first page clearing the threshold wins;
// otherwise the whole document is scanned for the best match, earliest
// page on ties.
func (r *Reconciler) locate(f models.Finding, pages []models.Page, norms []normText) matchOutcome {
	out := matchOutcome{report: MatchReport{Finding: f}}

	key := normalize(f.Quote).runes
	if len(key) > keyLimit {
		key = key[:keyLimit]
	}
	if len(key) == 0 {
		r.log.Debug("Skipping finding with empty quote")
		return out
	}

	if f.PageHint > 0 {
		lo, hi := f.PageHint-hintBefore, f.PageHint+hintAfter
		for i, p := range pages {
			if p.Number < lo || p.Number > hi {
				continue
			}
			if start, end, sim, ok := r.matchPage(norms[i], key); ok {
				out.report.Matched = true
				out.report.PageNumber = p.Number
				out.report.Similarity = sim
				out.marks = r.projectMarks(p, norms[i], start, end, f)
				return out
			}
		}
	}

	bestIdx, bestStart, bestEnd := -1, 0, 0
	bestSim := 0.0
	for i := range pages {
		start, end, sim, ok := r.matchPage(norms[i], key)
		if !ok || sim <= bestSim {
			continue
		}
		bestIdx, bestStart, bestEnd, bestSim = i, start, end, sim
		if sim == 1 {
			break
		}
	}
	if bestIdx < 0 {
		r.log.Debug("No page matched quote: %.60s", f.Quote)
		return out
	}

	p := pages[bestIdx]
	out.report.Matched = true
	out.report.PageNumber = p.Number
	out.report.Similarity = bestSim
	out.marks = r.projectMarks(p, norms[bestIdx], bestStart, bestEnd, f)
	return out
}

// matchPage finds the best occurrence of key on one page. Exact
// substring search runs first; otherwise the closest alignment is kept
// when it clears the similarity threshold.
func (r *Reconciler) matchPage(norm normText, key []rune) (start, end int, sim float64, ok bool) {
	if len(norm.runes) == 0 {
		return 0, 0, 0, false
	}
	if at := indexRunes(norm.runes, key); at >= 0 {
		return at, at + len(key), 1, true
	}
	start, end, sim = bestWindow(norm.runes, key)
	return start, end, sim, sim >= r.threshold
}

// projectMarks converts a normalized match range into one mark per
// overlapped text span. The note rides on the first mark of the group;
// a page without span geometry gets a single fallback band.
func (r *Reconciler) projectMarks(page models.Page, norm normText, start, end int, f models.Finding) []models.Mark {
	color := models.HighlightColor(f.Severity)
	note := markNote(f)

	if len(page.Spans) == 0 || end <= start {
		return []models.Mark{{PageNumber: page.Number, Box: fallbackBox, Color: color, Note: note}}
	}

	origStart := norm.offsets[start]
	origEnd := norm.offsets[end-1] + 1

	var marks []models.Mark
	pos := 0
	for _, span := range page.Spans {
		length := utf8.RuneCountInString(span.Text)
		spanStart, spanEnd := pos, pos+length
		pos = spanEnd + 1 // spans join into Page.Text with one separator rune

		if spanEnd <= origStart || spanStart >= origEnd {
			continue
		}
		m := models.Mark{PageNumber: page.Number, Box: span.Box, Color: color}
		if len(marks) == 0 {
			m.Note = note
		}
		marks = append(marks, m)
	}
	if len(marks) == 0 {
		return []models.Mark{{PageNumber: page.Number, Box: fallbackBox, Color: color, Note: note}}
	}
	return marks
}

// markNote renders the annotation note for a finding: the severity
// label plus the reviewer comment.
func markNote(f models.Finding) string {
	note := "[" + strings.ToUpper(string(f.Severity)) + "]"
	if f.Comment != "" {
		note += " " + f.Comment
	}
	return note
}
