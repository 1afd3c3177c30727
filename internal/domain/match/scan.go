package match

import (
	"cmp"
	"slices"

	"github.com/target/fuzzysearch/internal/domain/model"
)

// ProgressFunc is called after each candidate is scored with the number of
// candidates done so far. Returning an error aborts the scan.
type ProgressFunc func(done, total int) error

// Scan scores every candidate in order. A nil progress runs to completion.
func Scan(s *Scorer, candidates []string, progress ProgressFunc) ([]model.ResultEntry, error) {
	entries := make([]model.ResultEntry, 0, len(candidates))
	total := len(candidates)
	for i, c := range candidates {
		entries = append(entries, model.ResultEntry{Word: c, Distance: s.Score(c)})
		if progress != nil {
			if err := progress(i+1, total); err != nil {
				return nil, err
			}
		}
	}
	return entries, nil
}

// Rank stable-sorts entries by ascending distance and keeps at most limit.
// Ties keep their scan order.
func Rank(entries []model.ResultEntry, limit int) []model.ResultEntry {
	ranked := slices.Clone(entries)
	slices.SortStableFunc(ranked, func(a, b model.ResultEntry) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Search tokenizes text and returns the ranked top results for query.
func Search(query, text string, alg model.Algorithm) ([]model.ResultEntry, error) {
	s, err := NewScorer(alg, query)
	if err != nil {
		return nil, err
	}
	entries, err := Scan(s, Tokenize(text), nil)
	if err != nil {
		return nil, err
	}
	return Rank(entries, model.MaxResults), nil
}
