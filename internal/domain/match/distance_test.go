package match

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/domain/model"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
		{"café", "cafe", 1},
		{"日本語", "日本", 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a), "distance must be symmetric")
		})
	}
}

func randomWord(r *rand.Rand, alphabet []rune) string {
	out := make([]rune, r.IntN(7))
	for i := range out {
		out[i] = alphabet[r.IntN(len(alphabet))]
	}
	return string(out)
}

func TestLevenshteinMetricProperties(t *testing.T) {
	alphabet := []rune("abcé日")
	r := rand.New(rand.NewPCG(1, 2))
	for range 5000 {
		a, b, c := randomWord(r, alphabet), randomWord(r, alphabet), randomWord(r, alphabet)

		ab := Levenshtein(a, b)
		require.LessOrEqual(t, ab, Levenshtein(a, c)+Levenshtein(c, b), "triangle a=%q b=%q c=%q", a, b, c)
		require.Equal(t, ab, Levenshtein(b, a), "symmetry a=%q b=%q", a, b)
		require.Equal(t, a == b, ab == 0, "zero only for equal strings a=%q b=%q", a, b)
		require.Zero(t, NGramDistance(a, a), "ngram identity %q", a)
	}
}

func TestSearchTiesKeepTokenizerOrder(t *testing.T) {
	got, err := Search("cat", "cat bat hat", model.AlgorithmEditDistance)
	require.NoError(t, err)
	assert.Equal(t, []model.ResultEntry{
		{Word: "cat", Distance: 0},
		{Word: "bat", Distance: 1},
		{Word: "hat", Distance: 1},
	}, got)
}

func TestNGramDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "abc", "abc", 0},
		{"both shorter than n", "a", "b", 0},
		{"both empty", "", "", 0},
		{"one empty", "", "ab", 10},
		{"disjoint", "ab", "cd", 10},
		{"half shared", "abcd", "abce", 5},
		{"multiset counts", "aaa", "aa", 5},
		{"rounds half to even downward", "abcde", "abcd", 2},
		{"rounds half to even upward", "abc", "abxy", 8},
		{"mostly different", "night", "nacht", 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NGramDistance(tt.a, tt.b)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NGramDistance(tt.b, tt.a))
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 10)
		})
	}
}

func TestScoreIdentityIsZero(t *testing.T) {
	for _, w := range []string{"", "a", "ab", "hello", "ünïcödé"} {
		for _, alg := range []model.Algorithm{model.AlgorithmEditDistance, model.AlgorithmNGram} {
			got, err := Score(w, w, alg)
			require.NoError(t, err)
			assert.Zero(t, got, "%s(%q,%q)", alg, w, w)
		}
	}
}

func TestScoreUnknownAlgorithm(t *testing.T) {
	_, err := Score("a", "b", model.Algorithm("SOUNDEX"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnknownAlgorithm))
}

func TestScorerMatchesScore(t *testing.T) {
	candidates := []string{"", "k", "kit", "kitten", "sitting", "mitten", "kitkat"}
	for _, alg := range []model.Algorithm{model.AlgorithmEditDistance, model.AlgorithmNGram} {
		s, err := NewScorer(alg, "kitten")
		require.NoError(t, err)
		assert.Equal(t, alg, s.Algorithm())
		for _, c := range candidates {
			want, err := Score("kitten", c, alg)
			require.NoError(t, err)
			assert.Equal(t, want, s.Score(c), "%s candidate %q", alg, c)
		}
	}
}
