// Package match implements the distance functions and candidate ranking used
// by both synchronous and asynchronous searches.
package match

import (
	"fmt"
	"math"

	"github.com/target/fuzzysearch/internal/domain/model"
)

// NGramSize is the gram length used by the NGRAM algorithm.
const NGramSize = 2

// Levenshtein returns the minimum number of single-rune insertions, deletions
// and substitutions needed to turn a into b.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

type gramBag map[string]int

func grams(s string, n int) gramBag {
	r := []rune(s)
	bag := make(gramBag)
	for i := 0; i+n <= len(r); i++ {
		bag[string(r[i:i+n])]++
	}
	return bag
}

// jaccard is the multiset Jaccard similarity of two bags. Two empty bags are
// identical.
func jaccard(a, b gramBag) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	var inter, union int
	for g, ca := range a {
		cb := b[g]
		inter += min(ca, cb)
		union += max(ca, cb)
	}
	for g, cb := range b {
		if _, seen := a[g]; !seen {
			union += cb
		}
	}
	return float64(inter) / float64(union)
}

// NGramSimilarity returns the bigram multiset Jaccard similarity of a and b.
func NGramSimilarity(a, b string) float64 {
	return jaccard(grams(a, NGramSize), grams(b, NGramSize))
}

// NGramDistance maps similarity onto the integer range 0..10, rounding half to even.
func NGramDistance(a, b string) int {
	return similarityToDistance(NGramSimilarity(a, b))
}

func similarityToDistance(sim float64) int {
	return int(math.RoundToEven(10 * (1 - sim)))
}

// Score computes the distance between query and candidate under alg.
func Score(query, candidate string, alg model.Algorithm) (int, error) {
	s, err := NewScorer(alg, query)
	if err != nil {
		return 0, err
	}
	return s.Score(candidate), nil
}

// Scorer scores many candidates against one query, caching per-query work.
type Scorer struct {
	alg      model.Algorithm
	query    string
	queryBag gramBag
}

// NewScorer prepares a scorer for query under alg.
func NewScorer(alg model.Algorithm, query string) (*Scorer, error) {
	s := &Scorer{alg: alg, query: query}
	switch alg {
	case model.AlgorithmEditDistance:
	case model.AlgorithmNGram:
		s.queryBag = grams(query, NGramSize)
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownAlgorithm, alg)
	}
	return s, nil
}

// Algorithm returns the algorithm the scorer applies.
func (s *Scorer) Algorithm() model.Algorithm { return s.alg }

// Score returns the distance between the scorer's query and candidate.
func (s *Scorer) Score(candidate string) int {
	if s.alg == model.AlgorithmNGram {
		return similarityToDistance(jaccard(s.queryBag, grams(candidate, NGramSize)))
	}
	return Levenshtein(s.query, candidate)
}
