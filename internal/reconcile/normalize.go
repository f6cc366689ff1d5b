package reconcile

import "unicode"

// normText is a normalized view of a string that remembers where each
// normalized rune came from, so match positions can be projected back
// onto the original text.
type normText struct {
	runes []rune
	// offsets[i] is the rune index in the original string of the rune
	// that produced runes[i]. A collapsed whitespace run maps to the
	// index of its first whitespace rune.
	offsets []int
}

// normalize lowercases the text, folds typographic quotes and dashes to
// their ASCII forms, collapses whitespace runs to a single space, and
// trims the ends. Model output quotes PDF text loosely, so matching
// happens in this folded space.
func normalize(s string) normText {
	src := []rune(s)
	out := make([]rune, 0, len(src))
	offs := make([]int, 0, len(src))

	spaceAt := -1
	for i, r := range src {
		if unicode.IsSpace(r) {
			if len(out) > 0 && spaceAt < 0 {
				spaceAt = i
			}
			continue
		}
		if spaceAt >= 0 {
			out = append(out, ' ')
			offs = append(offs, spaceAt)
			spaceAt = -1
		}
		out = append(out, foldRune(r))
		offs = append(offs, i)
	}

	return normText{runes: out, offsets: offs}
}

// foldRune maps curly quotes and dash variants onto their ASCII
// equivalents and lowercases everything else.
func foldRune(r rune) rune {
	switch r {
	case '‘', '’', '‚', '′': // ‘ ’ ‚ ′
		return '\''
	case '“', '”', '„', '″': // “ ” „ ″
		return '"'
	case '‐', '‑', '‒', '–', '—', '―', '−': // hyphen and dash variants
		return '-'
	}
	return unicode.ToLower(r)
}
