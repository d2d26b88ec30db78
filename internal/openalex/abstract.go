package openalex

import "strings"

// reconstructAbstract rebuilds linear abstract text from OpenAlex's inverted index (a
// map from token to the positions at which it occurs). Each token is placed at every
// position it claims; gaps left by positions with no assigned token become single
// spaces; the result is trimmed. A token whose declared position falls beyond the
// highest position actually referenced elsewhere is simply appended past the known
// tail — it must never cause an out-of-range panic.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	maxPos := -1
	for _, positions := range invertedIndex {
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 {
		return ""
	}

	slots := make([]string, maxPos+1)
	for token, positions := range invertedIndex {
		for _, pos := range positions {
			if pos < 0 {
				continue
			}
			if pos >= len(slots) {
				// Defensive: a position past every other token's declared range.
				// Extend rather than index out of bounds.
				grown := make([]string, pos+1)
				copy(grown, slots)
				slots = grown
			}
			slots[pos] = token
		}
	}

	var b strings.Builder
	for i, token := range slots {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(token)
	}
	return strings.TrimSpace(b.String())
}
