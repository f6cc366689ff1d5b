// Package report renders session state as markdown and splits critique
// text into heading-delimited sections.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

// Sections parses critique markdown and splits it on top-level
// headings. Text before the first heading becomes a section with an
// empty heading; blank sections are dropped.
func Sections(critiqueText string) []models.SectionSummary {
	src := []byte(critiqueText)
	if len(bytes.TrimSpace(src)) == 0 {
		return nil
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var sections []models.SectionSummary
	heading := ""
	var body bytes.Buffer

	flush := func() {
		trimmed := strings.TrimSpace(body.String())
		if heading != "" || trimmed != "" {
			sections = append(sections, models.SectionSummary{Heading: heading, Body: trimmed})
		}
		body.Reset()
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			flush()
			heading = blockText(h, src)
			continue
		}
		if t := blockText(n, src); t != "" {
			if body.Len() > 0 {
				body.WriteString("\n\n")
			}
			body.WriteString(t)
		}
	}
	flush()

	return sections
}

// blockText returns the raw source text of a block node. Leaf blocks
// carry their own lines; container blocks concatenate their children.
func blockText(n ast.Node, src []byte) string {
	if n.Type() != ast.TypeBlock {
		return ""
	}
	var buf bytes.Buffer
	if lines := n.Lines(); lines.Len() > 0 {
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, src); t != "" {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(t)
		}
	}
	return buf.String()
}

// Render builds a markdown report for a session: document stats, the
// critique text, a findings table with match state, rewrite
// suggestions, and per-page mark counts.
func Render(s *storage.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Review Report: %s\n\n", s.ID)
	fmt.Fprintf(&b, "- Pages: %d\n", len(s.Pages))
	fmt.Fprintf(&b, "- Chunks: %d\n", s.ChunkCount)
	fmt.Fprintf(&b, "- Marks: %d\n", len(s.Marks))
	if !s.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- Created: %s\n", s.CreatedAt.Format(time.RFC3339))
	}

	if s.Critique == nil {
		b.WriteString("\nNo critique has been generated for this session yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n## Critique (%s)\n\n%s\n", s.Critique.Mode, strings.TrimSpace(s.Critique.Text))

	if len(s.Critique.Findings) > 0 {
		b.WriteString("\n## Findings\n\n")
		b.WriteString("| # | Severity | Quote | Page | Matched |\n")
		b.WriteString("|---|----------|-------|------|---------|\n")
		for i, f := range s.Critique.Findings {
			page, matched := "-", "-"
			if i < len(s.Reports) {
				if rep := s.Reports[i]; rep.Matched {
					page, matched = strconv.Itoa(rep.PageNumber), "yes"
				} else {
					matched = "no"
				}
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				i+1, f.Severity, cell(f.Quote), page, matched)
		}
	}

	if len(s.Critique.Rewrites) > 0 {
		b.WriteString("\n## Rewrite Suggestions\n\n")
		for _, rw := range s.Critique.Rewrites {
			fmt.Fprintf(&b, "- %q -> %q\n", rw.Original, rw.Suggested)
		}
	}

	if len(s.Marks) > 0 {
		counts := make(map[int]int)
		for _, m := range s.Marks {
			counts[m.PageNumber]++
		}
		pages := make([]int, 0, len(counts))
		for p := range counts {
			pages = append(pages, p)
		}
		sort.Ints(pages)

		b.WriteString("\n## Marks by Page\n\n")
		for _, p := range pages {
			fmt.Fprintf(&b, "- Page %d: %d\n", p, counts[p])
		}
	}

	return b.String()
}

// cell flattens text into a single markdown table cell, escaping pipes
// and capping the length.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	const maxRunes = 60
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes]) + "..."
	}
	return s
}
