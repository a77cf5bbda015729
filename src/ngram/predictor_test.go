package ngram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyNoFalseNegatives(t *testing.T) {
	m, err := Train(sentimentSamples(), 3)
	require.NoError(t, err)

	v := NewVocabulary(m)
	for _, lt := range m.Orders {
		for _, table := range lt {
			for g := range table.Probabilities {
				if !v.MayContain(g) {
					t.Errorf("Vocabulary rejected known gram %q", g)
				}
			}
		}
	}
	assert.Equal(t, 1.0, v.Coverage("love this game"))
	assert.Equal(t, 0.0, v.Coverage(""))
}

// TestPredictorCloneShares checks that worker handles do not copy the model.
//
// Rationale: PredictBatch clones once per worker on every serve batch, and a
// deep copy of a large model costs far more than classifying the batch.
func TestPredictorCloneShares(t *testing.T) {
	m, err := Train(sentimentSamples(), 3)
	require.NoError(t, err)
	p, err := NewPredictor(m, 8)
	require.NoError(t, err)

	clone := p.Clone()
	assert.Same(t, p.model, clone.model)
	assert.Same(t, p.vocab, clone.vocab)
	assert.Same(t, p.cache, clone.cache)

	before := m.Clone()
	_, err = p.PredictBatch([]string{"love this game", "hate the servers", "noon"}, 3)
	require.NoError(t, err)
	assert.Equal(t, before, m, "prediction must not mutate the shared model")
}

// TestPredictorMatchesClassify checks the filtered, cached path agrees with
// plain classification.
//
// Rationale: the Bloom filter may only skip grams no table holds, so it must
// never change a prediction.
func TestPredictorMatchesClassify(t *testing.T) {
	m, err := Train(sentimentSamples(), 3)
	require.NoError(t, err)

	p, err := NewPredictor(m, 8)
	require.NoError(t, err)

	sentences := []string{
		"love this game",
		"hate the servers",
		"patch notes at noon",
		"unknown words only",
		"love this game",
		"",
	}
	for _, s := range sentences {
		assert.Equal(t, Classify(m, s), p.Predict(s), "sentence %q", s)
	}

	batch, err := p.PredictBatch(sentences, 4)
	require.NoError(t, err)
	require.Len(t, batch, len(sentences))
	for i, s := range sentences {
		assert.Equal(t, Classify(m, s), batch[i], "sentence %q", s)
	}
}

func TestNewPredictorEmptyModel(t *testing.T) {
	m, err := NewModel(1)
	require.NoError(t, err)

	_, err = NewPredictor(m, 0)
	assert.ErrorIs(t, err, ErrEmptyModel)
}
