package report

import (
	"strings"
	"testing"
	"time"

	"github.com/Epistemic-Technology/critique-mcp/internal/reconcile"
	"github.com/Epistemic-Technology/critique-mcp/internal/storage"
	"github.com/Epistemic-Technology/critique-mcp/models"
)

func TestSectionsSplitsOnHeadings(t *testing.T) {
	critique := `## CRITICAL Issues

The sampling frame is undefined.

## Strengths

Clear writing throughout.

Good use of figures.`

	sections := Sections(critique)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2: %+v", len(sections), sections)
	}
	if sections[0].Heading != "CRITICAL Issues" {
		t.Errorf("sections[0].Heading = %q", sections[0].Heading)
	}
	if !strings.Contains(sections[0].Body, "sampling frame") {
		t.Errorf("sections[0].Body = %q, want sampling frame text", sections[0].Body)
	}
	if sections[1].Heading != "Strengths" {
		t.Errorf("sections[1].Heading = %q", sections[1].Heading)
	}
	if !strings.Contains(sections[1].Body, "Clear writing") || !strings.Contains(sections[1].Body, "figures") {
		t.Errorf("sections[1].Body = %q, want both paragraphs", sections[1].Body)
	}
}

func TestSectionsPreambleBeforeFirstHeading(t *testing.T) {
	critique := `Overall the thesis is promising.

## MAJOR Issues

The literature review is thin.`

	sections := Sections(critique)
	if len(sections) != 2 {
		t.Fatalf("got %d sections, want 2: %+v", len(sections), sections)
	}
	if sections[0].Heading != "" || !strings.Contains(sections[0].Body, "promising") {
		t.Errorf("preamble section = %+v", sections[0])
	}
	if sections[1].Heading != "MAJOR Issues" {
		t.Errorf("sections[1].Heading = %q", sections[1].Heading)
	}
}

func TestSectionsEmptyInput(t *testing.T) {
	if got := Sections(""); got != nil {
		t.Errorf("Sections(\"\") = %+v, want nil", got)
	}
	if got := Sections("  \n\t "); got != nil {
		t.Errorf("Sections(whitespace) = %+v, want nil", got)
	}
}

func TestSectionsHeadingOnly(t *testing.T) {
	sections := Sections("## Strengths")
	if len(sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(sections))
	}
	if sections[0].Heading != "Strengths" || sections[0].Body != "" {
		t.Errorf("section = %+v, want bare heading", sections[0])
	}
}

func reportSession() *storage.Session {
	return &storage.Session{
		ID:         "abc123",
		Pages:      []models.Page{{Number: 1, Text: "one"}, {Number: 2, Text: "two"}},
		ChunkCount: 7,
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderWithoutCritique(t *testing.T) {
	out := Render(reportSession())

	for _, want := range []string{
		"# Review Report: abc123",
		"- Pages: 2",
		"- Chunks: 7",
		"No critique has been generated",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFullReport(t *testing.T) {
	s := reportSession()
	s.Critique = &models.Critique{
		Mode: models.ModeMethodology,
		Text: "## MAJOR Issues\n\nThe method section lacks detail.",
		Findings: []models.Finding{
			{Quote: "the method section lacks detail about sampling", Severity: models.SeverityMajor},
			{Quote: "unlocatable quoted text from the critique", Severity: models.SeverityMinor},
		},
		Rewrites: []models.RewriteSuggestion{
			{Original: "in order to", Suggested: "to"},
		},
	}
	s.Reports = []reconcile.MatchReport{
		{Finding: s.Critique.Findings[0], Matched: true, PageNumber: 2, Similarity: 1},
		{Finding: s.Critique.Findings[1], Matched: false},
	}
	s.Marks = []models.Mark{
		{PageNumber: 2}, {PageNumber: 2}, {PageNumber: 1},
	}

	out := Render(s)

	for _, want := range []string{
		"## Critique (methodology)",
		"The method section lacks detail.",
		"## Findings",
		"| 1 | major | the method section lacks detail about sampling | 2 | yes |",
		"| 2 | minor | unlocatable quoted text from the critique | - | no |",
		"## Rewrite Suggestions",
		`- "in order to" -> "to"`,
		"## Marks by Page",
		"- Page 1: 1",
		"- Page 2: 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderFindingsWithoutReports(t *testing.T) {
	s := reportSession()
	s.Critique = &models.Critique{
		Mode:     models.ModeFullReview,
		Text:     "critique text",
		Findings: []models.Finding{{Quote: "some quoted passage from the document", Severity: models.SeverityMajor}},
	}

	out := Render(s)
	if !strings.Contains(out, "| 1 | major | some quoted passage from the document | - | - |") {
		t.Errorf("findings row should show unknown match state:\n%s", out)
	}
}

func TestCellSanitizesTableText(t *testing.T) {
	got := cell("a | b\nwith   runs")
	if got != `a \| b with runs` {
		t.Errorf("cell() = %q", got)
	}

	long := strings.Repeat("x", 80)
	if got := cell(long); len([]rune(got)) != 63 || !strings.HasSuffix(got, "...") {
		t.Errorf("cell() long = %q, want 60 runes plus ellipsis", got)
	}
}
