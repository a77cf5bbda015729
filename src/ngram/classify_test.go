package ngram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-classifier/src/tweets"
)

// tableModel builds a model directly from per-order label tables.
func tableModel(orders ...LabelTables) *Model {
	m := &Model{Orders: orders}
	m.normalizeLabels()
	return m
}

func TestClassifyMaxProbabilityOwner(t *testing.T) {
	m := tableModel(LabelTables{
		"pos": {TotalSamples: 10, Probabilities: map[string]float64{"good": 0.8}},
		"neg": {TotalSamples: 10, Probabilities: map[string]float64{"bad": 0.9}},
	})

	votes := tally(m, "this is good", nil)
	assert.Equal(t, map[string]int{"pos": 1}, votes)
	assert.Equal(t, "pos", Classify(m, "this is good"))
	assert.Equal(t, "neg", Classify(m, "so bad"))
}

func TestClassifyInconclusive(t *testing.T) {
	m := tableModel(LabelTables{
		"pos": {TotalSamples: 10, Probabilities: map[string]float64{"good": 0.8}},
	})

	testCases := []string{"nothing known here", "", "   "}
	for _, sentence := range testCases {
		if got := Classify(m, sentence); got != Inconclusive {
			t.Errorf("Classify(%q) = %q, want %q", sentence, got, Inconclusive)
		}
	}
}

// TestClassifyFirstTokenDedup checks that a longer gram silences shorter
// grams sharing its first token.
//
// Rationale: "alpha" owns unigram "good" and "game", "zeta" owns the bigram
// "good game". The bigram votes first and claims "good"; only the unigram
// "game" is left for "alpha", so the vote ties 1-1 and "alpha" wins on name.
// Without the bigram, "alpha" would take both unigrams.
func TestClassifyFirstTokenDedup(t *testing.T) {
	m := tableModel(
		LabelTables{
			"alpha": {TotalSamples: 4, Probabilities: map[string]float64{"good": 0.5, "game": 0.5}},
			"zeta":  {TotalSamples: 4, Probabilities: map[string]float64{"good": 0.25}},
		},
		LabelTables{
			"zeta": {TotalSamples: 4, Probabilities: map[string]float64{"good game": 0.5}},
		},
	)

	assert.Equal(t, map[string]int{"zeta": 1, "alpha": 1}, tally(m, "good game", nil))

	// The repeated "good" is already claimed and adds nothing.
	assert.Equal(t, map[string]int{"zeta": 1, "alpha": 1}, tally(m, "good game good", nil))
	assert.Equal(t, "alpha", Classify(m, "good game"))

	unigramsOnly := tableModel(m.Orders[0].Clone())
	assert.Equal(t, map[string]int{"alpha": 2}, tally(unigramsOnly, "good game", nil))
}

func TestClassifyVotesBoundedByFirstTokens(t *testing.T) {
	m, err := Train([]tweets.Sample{
		{Label: "Positive", Text: "what a great great game"},
		{Label: "Negative", Text: "what a terrible game"},
		{Label: "Neutral", Text: "a game is on"},
	}, 3)
	require.NoError(t, err)

	sentences := []string{
		"what a great game",
		"a game a game a game",
		"great great great",
		"terrible game is on",
	}
	for _, s := range sentences {
		distinct := make(map[string]bool)
		for _, tok := range Tokenize(s) {
			distinct[tok] = true
		}
		total := 0
		for _, n := range tally(m, s, nil) {
			total += n
		}
		assert.LessOrEqual(t, total, len(distinct), "sentence %q", s)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	m, err := Train([]tweets.Sample{
		{Label: "b", Text: "same words"},
		{Label: "a", Text: "same words"},
		{Label: "c", Text: "other words"},
	}, 2)
	require.NoError(t, err)

	first := Classify(m, "same words")
	for i := 0; i < 50; i++ {
		require.Equal(t, first, Classify(m, "same words"))
	}
	assert.Equal(t, "a", first, "equal probabilities resolve to the smallest label")
}

func TestTestGram(t *testing.T) {
	tables := LabelTables{
		"neg": {TotalSamples: 10, Probabilities: map[string]float64{"game": 0.4}},
		"pos": {TotalSamples: 10, Probabilities: map[string]float64{"game": 0.4, "good": 0.8}},
		"neu": {TotalSamples: 10, Probabilities: map[string]float64{"good": 0.1}},
	}

	testCases := []struct {
		gram string
		want string
	}{
		{gram: "good", want: "pos"},
		{gram: "game", want: "neg"},
		{gram: "missing", want: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.gram, func(t *testing.T) {
			if got := TestGram(tables, tc.gram); got != tc.want {
				t.Errorf("TestGram(%q) = %q, want %q", tc.gram, got, tc.want)
			}
		})
	}
}

func TestWinner(t *testing.T) {
	assert.Equal(t, Inconclusive, winner(nil))
	assert.Equal(t, "b", winner(map[string]int{"a": 1, "b": 3, "c": 2}))
	assert.Equal(t, "a", winner(map[string]int{"c": 2, "a": 2, "b": 1}))
}
