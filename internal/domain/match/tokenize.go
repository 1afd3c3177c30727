package match

import (
	"slices"
	"strings"
)

// Tokenize splits text on runs of whitespace and returns the distinct words
// in lexicographic order. The order is the iteration order for scoring and
// therefore the tie-break order of results.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	slices.Sort(words)
	return slices.Compact(words)
}
