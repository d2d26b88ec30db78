package search

import (
	"strconv"
	"strings"
)

// parseYearToken interprets one C4-shaped year token (a literal year, `>YYYY`,
// `<YYYY`, or `YYYY-YYYY`) into an (optional) inclusive [from, to] bound.
func parseYearToken(tok string) (from, to *int, ok bool) {
	switch {
	case strings.Contains(tok, "-") && len(tok) == 9:
		parts := strings.SplitN(tok, "-", 2)
		a, errA := strconv.Atoi(parts[0])
		b, errB := strconv.Atoi(parts[1])
		if errA != nil || errB != nil {
			return nil, nil, false
		}
		return &a, &b, true
	case strings.HasPrefix(tok, ">"):
		y, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, nil, false
		}
		return &y, nil, true
	case strings.HasPrefix(tok, "<"):
		y, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, nil, false
		}
		return nil, &y, true
	default:
		y, err := strconv.Atoi(tok)
		if err != nil {
			return nil, nil, false
		}
		return &y, &y, true
	}
}
