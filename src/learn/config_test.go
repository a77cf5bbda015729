package learn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigPresenceSelects(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"probability": {"starting_probability": 0.001},
		"count": {}
	}`))
	require.NoError(t, err)

	assert.Equal(t, Selection{Probability: true, Count: true}, cfg.Selection)
	assert.Equal(t, 0.001, cfg.Probability.StartingProbability)
	assert.Equal(t, 0.1, cfg.Probability.MaxAccuracyReduction, "missing field keeps its default")
	assert.Equal(t, 2.0, cfg.Probability.Multiplier)
	assert.Equal(t, DefaultCountConfig(), cfg.Count)
	assert.Equal(t, DefaultSimilarityConfig(), cfg.Similarity)
}

func TestParseConfigSelectionOverrides(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"probability": {"starting_probability": 0.001},
		"randomizer": {"iterations": 5, "seed": 42},
		"selection": {"probability": false, "similarity": true}
	}`))
	require.NoError(t, err)

	assert.False(t, cfg.Selection.Probability, "selection switches a present strategy off")
	assert.True(t, cfg.Selection.Similarity, "selection switches an absent strategy on")
	assert.True(t, cfg.Selection.Randomizer, "keys missing from selection keep the presence rule")
	assert.False(t, cfg.Selection.Count)

	assert.Equal(t, DefaultSimilarityConfig(), cfg.Similarity)
	assert.Equal(t, 5, cfg.Randomizer.Iterations)
	assert.Equal(t, uint64(42), cfg.Randomizer.Seed)
	assert.Equal(t, 10, cfg.Randomizer.NumParams)
	assert.Equal(t, 12, cfg.Randomizer.Workers)
}

func TestParseConfigYAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
similarity:
  starting_deviation: 0.0001
  max_accuracy_reduction: 0.05
count:
`))
	require.NoError(t, err)

	assert.True(t, cfg.Selection.Similarity)
	assert.True(t, cfg.Selection.Count, "a null strategy value still selects it")
	assert.Equal(t, 0.0001, cfg.Similarity.StartingDeviation)
	assert.Equal(t, 0.05, cfg.Similarity.MaxAccuracyReduction)
	assert.Equal(t, DefaultCountConfig(), cfg.Count)
}

func TestParseConfigErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "NonNumeric", input: `{"count": {"min_count": "lots"}}`},
		{name: "BadMultiplier", input: `{"probability": {"probability_multiplyer": 1}}`},
		{name: "BadStart", input: `{"similarity": {"starting_deviation": 0}}`},
		{name: "NoWorkers", input: `{"randomizer": {"workers": 0}}`},
		{name: "NotAnObject", input: `[1, 2]`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tc.input)); err == nil {
				t.Errorf("Expected an error for %s", tc.input)
			}
		})
	}

	_, err := ParseConfig([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyConfig)
}

// TestValidateIgnoresUnselected checks that parameters of a strategy that
// will not run are not validated.
//
// Rationale: selection can switch a strategy off while its section is still
// present in a shared config file.
func TestValidateIgnoresUnselected(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{
		"probability": {"probability_multiplyer": 0.5},
		"selection": {"probability": false}
	}`))
	require.NoError(t, err)
	assert.False(t, cfg.Selection.Any())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learn.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"count": {"min_count": 3}}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Count.MinCount)
	assert.Equal(t, 0.01, cfg.Count.AdjustAmount)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
