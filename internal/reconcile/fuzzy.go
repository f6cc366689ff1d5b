package reconcile

// indexRunes returns the rune offset of the first occurrence of needle
// in haystack, or -1 when absent.
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		j := 0
		for j < len(needle) && haystack[i+j] == needle[j] {
			j++
		}
		if j == len(needle) {
			return i
		}
	}
	return -1
}

// bestWindow finds the substring of hay closest to key by rune edit
// distance and returns its bounds with a similarity score in [0, 1].
// Ties prefer the earliest end and the shortest window, keeping results
// stable across runs.
//
// The forward pass aligns key against hay with a free leading gap, so
// the final row holds the best distance for a match ending at every hay
// offset. The backward pass re-aligns the reversed key against the
// reversed candidate window to pin down where the match starts.
func bestWindow(hay, key []rune) (int, int, float64) {
	if len(key) == 0 || len(hay) == 0 {
		return 0, 0, 0
	}

	row := editRow(key, hay, true)
	dist, end := minAt(row)

	// A match of key with dist edits spans at most len(key)+dist runes.
	lo := end - len(key) - dist
	if lo < 0 {
		lo = 0
	}
	window := reverseRunes(hay[lo:end])
	tailRow := editRow(reverseRunes(key), window, false)
	_, tail := minAt(tailRow)
	start := end - tail

	maxLen := len(key)
	if length := end - start; length > maxLen {
		maxLen = length
	}
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		sim = 0
	}
	return start, end, sim
}

// editRow computes the final row of the edit-distance table between key
// and every prefix of hay, using two rows of memory. With freeStart the
// match may begin at any hay offset (leading hay runes cost nothing);
// without it the match is anchored at offset zero and trailing hay
// runes are what the caller ignores.
func editRow(key, hay []rune, freeStart bool) []int {
	n := len(hay)
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	if !freeStart {
		for j := 0; j <= n; j++ {
			prev[j] = j
		}
	}

	for i := 1; i <= len(key); i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if key[i-1] == hay[j-1] {
				cost = 0
			}
			best := prev[j-1] + cost
			if d := prev[j] + 1; d < best {
				best = d
			}
			if d := curr[j-1] + 1; d < best {
				best = d
			}
			curr[j] = best
		}
		prev, curr = curr, prev
	}
	return prev
}

// minAt returns the smallest value in row and the first index where it
// occurs.
func minAt(row []int) (best, at int) {
	best, at = row[0], 0
	for j := 1; j < len(row); j++ {
		if row[j] < best {
			best, at = row[j], j
		}
	}
	return best, at
}

func reverseRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[len(r)-1-i] = c
	}
	return out
}
