package critique

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Epistemic-Technology/critique-mcp/models"
)

// Parsing generated prose is best-effort by nature. The raw critique
// text is always preserved alongside whatever parses out of it, so a
// response the parser cannot anchor still reaches the caller intact.

var (
	// quoteRe captures double-quoted excerpts long enough to anchor in
	// the source document. Shorter fragments match too many places;
	// longer ones are almost never literal quotes.
	quoteRe = regexp.MustCompile(`"([^"]{20,200})"`)

	// pageRe matches the page reference forms the templates request.
	pageRe = regexp.MustCompile(`(?i)(?:page|pg\.?|p\.)\s*(\d+)`)

	// rewriteRe matches "original" -> "improved" suggestion pairs in
	// their common spellings.
	rewriteRe = regexp.MustCompile(`(?i)"([^"]+)"\s*(?:→|->|should be|could be|replace with)\s*"([^"]+)"`)
)

var (
	criticalFlags = []string{"critical", "serious", "fatal", "fundamental"}
	majorFlags    = []string{"major", "significant", "important"}
	minorFlags    = []string{"minor", "small", "typo", "grammar"}

	// Quotes under these headings praise or propose rewordings rather
	// than flag problems, so they never become findings.
	skipMarkers = []string{"strength", "rewrite suggestion"}
)

const (
	maxQuoteLen   = 150
	maxCommentLen = 200
	maxRewrites   = 10
	// fallbackFindings caps how many bare quotes become findings when
	// the response carries no recognizable structure at all.
	fallbackFindings = 5
)

// ParseFindings extracts structured findings from critique text. A
// finding is a quoted excerpt paired with the severity in effect from
// the enclosing section heading, the comment lines that follow it, and
// a page hint when the quote line carries one. Severity persists line
// to line until a new flag word changes it; the default is major.
func ParseFindings(text string) []models.Finding {
	var findings []models.Finding

	severity := models.SeverityMajor
	skip := false

	// Lines outside strengths/rewrite sections, kept for the fallback
	// scan so excluded sections stay excluded there too.
	var clean strings.Builder

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lower := strings.ToLower(line)

		switch {
		case containsAny(lower, criticalFlags):
			severity, skip = models.SeverityCritical, false
		case containsAny(lower, majorFlags):
			severity, skip = models.SeverityMajor, false
		case containsAny(lower, minorFlags):
			severity, skip = models.SeverityMinor, false
		}
		if containsAny(lower, skipMarkers) {
			skip = true
		}
		if skip {
			continue
		}
		clean.WriteString(line)
		clean.WriteByte('\n')

		if !strings.Contains(line, `"`) {
			continue
		}
		m := quoteRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		findings = append(findings, models.Finding{
			Quote:    truncateRunes(m[1], maxQuoteLen),
			Severity: severity,
			Comment:  commentAfter(lines, i),
			PageHint: pageHint(line),
		})
	}

	// Unstructured responses still sometimes quote the document. Treat
	// the first few bare quotes as generic findings so reconciliation
	// has something to anchor.
	if len(findings) == 0 {
		for _, m := range quoteRe.FindAllStringSubmatch(clean.String(), fallbackFindings) {
			findings = append(findings, models.Finding{
				Quote:    truncateRunes(m[1], maxQuoteLen),
				Severity: models.SeverityMajor,
				Comment:  "Review and revise this section",
			})
		}
	}

	return findings
}

// ParseRewrites extracts "original" -> "improved" suggestion pairs.
// The page hint comes from a page reference near the match when one
// exists.
func ParseRewrites(text string) []models.RewriteSuggestion {
	var rewrites []models.RewriteSuggestion

	for _, idx := range rewriteRe.FindAllStringSubmatchIndex(text, maxRewrites) {
		original := text[idx[2]:idx[3]]
		suggested := text[idx[4]:idx[5]]

		start := idx[2] - 100
		if start < 0 {
			start = 0
		}
		end := idx[3] + 100
		if end > len(text) {
			end = len(text)
		}

		rewrites = append(rewrites, models.RewriteSuggestion{
			Original:  truncateRunes(original, 100),
			Suggested: truncateRunes(suggested, 100),
			PageHint:  pageHint(text[start:end]),
		})
	}

	return rewrites
}

// commentAfter joins up to three following non-heading lines into the
// finding's comment.
func commentAfter(lines []string, quoteLine int) string {
	var b strings.Builder
	for j := quoteLine + 1; j < len(lines) && j <= quoteLine+3; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(trimmed)
	}
	comment := strings.TrimSpace(truncateRunes(b.String(), maxCommentLen))
	if comment == "" {
		return "Review and improve this section"
	}
	return comment
}

// pageHint parses the first page reference in s, 0 when there is none.
func pageHint(s string) int {
	m := pageRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
