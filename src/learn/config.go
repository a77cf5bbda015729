package learn

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyConfig is returned for a learn config file with no content.
var ErrEmptyConfig = errors.New("learn config is empty")

// ProbabilityConfig drives probability pruning.
type ProbabilityConfig struct {
	// StartingProbability is the first threshold probed.
	StartingProbability float64 `yaml:"starting_probability"`
	// MaxAccuracyReduction bounds how far below the baseline a pruned model may score.
	MaxAccuracyReduction float64 `yaml:"max_accuracy_reduction"`
	// Multiplier grows the threshold after every accepted probe.
	Multiplier    float64 `yaml:"probability_multiplyer"`
	MaxIterations int     `yaml:"max_iterations"`
}

// SimilarityConfig drives similarity pruning.
type SimilarityConfig struct {
	StartingDeviation    float64 `yaml:"starting_deviation"`
	MaxAccuracyReduction float64 `yaml:"max_accuracy_reduction"`
	Multiplier           float64 `yaml:"probability_multiplyer"`
	MaxIterations        int     `yaml:"max_iterations"`
}

// CountConfig drives count pruning.
type CountConfig struct {
	MinCount     int     `yaml:"min_count"`
	AdjustAmount float64 `yaml:"adjust_amount"`
}

// RandomizerConfig drives randomized local search.
type RandomizerConfig struct {
	NumParams  int     `yaml:"num_params"`
	StepSize   float64 `yaml:"step_size"`
	Iterations int     `yaml:"iterations"`
	// Workers is the number of candidates validated per iteration.
	Workers int `yaml:"workers"`
	// Seed makes a run reproducible; 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// Selection names the strategies Learn runs.
type Selection struct {
	Probability bool `yaml:"probability"`
	Similarity  bool `yaml:"similarity"`
	Count       bool `yaml:"count"`
	Randomizer  bool `yaml:"randomizer"`
}

// Any reports whether at least one strategy is selected.
func (s Selection) Any() bool {
	return s.Probability || s.Similarity || s.Count || s.Randomizer
}

// Config is the complete optimizer configuration. Every strategy always
// carries usable parameters; Selection decides which ones run.
type Config struct {
	Probability ProbabilityConfig
	Similarity  SimilarityConfig
	Count       CountConfig
	Randomizer  RandomizerConfig
	Selection   Selection
}

// DefaultProbabilityConfig starts the threshold at 1e-5 and doubles it.
func DefaultProbabilityConfig() ProbabilityConfig {
	return ProbabilityConfig{
		StartingProbability:  0.00001,
		MaxAccuracyReduction: 0.1,
		Multiplier:           2.0,
		MaxIterations:        64,
	}
}

// DefaultSimilarityConfig starts the deviation at 1e-8 and doubles it.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		StartingDeviation:    0.00000001,
		MaxAccuracyReduction: 0.1,
		Multiplier:           2.0,
		MaxIterations:        64,
	}
}

// DefaultCountConfig drops grams seen at most twice.
func DefaultCountConfig() CountConfig {
	return CountConfig{MinCount: 2, AdjustAmount: 0.01}
}

// DefaultRandomizerConfig runs 1000 iterations of 12 candidates each.
func DefaultRandomizerConfig() RandomizerConfig {
	return RandomizerConfig{
		NumParams:  10,
		StepSize:   0.001,
		Iterations: 1000,
		Workers:    12,
	}
}

// DefaultConfig returns default parameters for every strategy with nothing
// selected.
func DefaultConfig() Config {
	return Config{
		Probability: DefaultProbabilityConfig(),
		Similarity:  DefaultSimilarityConfig(),
		Count:       DefaultCountConfig(),
		Randomizer:  DefaultRandomizerConfig(),
	}
}

// UnmarshalYAML seeds defaults so missing fields keep them.
func (c *ProbabilityConfig) UnmarshalYAML(value *yaml.Node) error {
	*c = DefaultProbabilityConfig()
	type plain ProbabilityConfig
	return value.Decode((*plain)(c))
}

// UnmarshalYAML seeds defaults so missing fields keep them.
func (c *SimilarityConfig) UnmarshalYAML(value *yaml.Node) error {
	*c = DefaultSimilarityConfig()
	type plain SimilarityConfig
	return value.Decode((*plain)(c))
}

// UnmarshalYAML seeds defaults so missing fields keep them.
func (c *CountConfig) UnmarshalYAML(value *yaml.Node) error {
	*c = DefaultCountConfig()
	type plain CountConfig
	return value.Decode((*plain)(c))
}

// UnmarshalYAML seeds defaults so missing fields keep them.
func (c *RandomizerConfig) UnmarshalYAML(value *yaml.Node) error {
	*c = DefaultRandomizerConfig()
	type plain RandomizerConfig
	return value.Decode((*plain)(c))
}

// UnmarshalYAML applies the selection rules: a strategy key that is present
// selects the strategy (a null value means default parameters), and each key
// of the "selection" object overrides the choice for its strategy.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Probability yaml.Node `yaml:"probability"`
		Similarity  yaml.Node `yaml:"similarity"`
		Count       yaml.Node `yaml:"count"`
		Randomizer  yaml.Node `yaml:"randomizer"`
		Selection   struct {
			Probability *bool `yaml:"probability"`
			Similarity  *bool `yaml:"similarity"`
			Count       *bool `yaml:"count"`
			Randomizer  *bool `yaml:"randomizer"`
		} `yaml:"selection"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*c = DefaultConfig()
	var err error
	if c.Selection.Probability, err = decodeSection(&raw.Probability, &c.Probability); err != nil {
		return fmt.Errorf("probability: %w", err)
	}
	if c.Selection.Similarity, err = decodeSection(&raw.Similarity, &c.Similarity); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	if c.Selection.Count, err = decodeSection(&raw.Count, &c.Count); err != nil {
		return fmt.Errorf("count: %w", err)
	}
	if c.Selection.Randomizer, err = decodeSection(&raw.Randomizer, &c.Randomizer); err != nil {
		return fmt.Errorf("randomizer: %w", err)
	}

	override := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	override(&c.Selection.Probability, raw.Selection.Probability)
	override(&c.Selection.Similarity, raw.Selection.Similarity)
	override(&c.Selection.Count, raw.Selection.Count)
	override(&c.Selection.Randomizer, raw.Selection.Randomizer)
	return nil
}

// decodeSection decodes node into out when the key was present and reports
// whether it was.
func decodeSection(node *yaml.Node, out any) (bool, error) {
	if node.Kind == 0 {
		return false, nil
	}
	if node.ShortTag() == "!!null" {
		return true, nil
	}
	return true, node.Decode(out)
}

// Validate checks that every selected strategy can make progress.
func (c Config) Validate() error {
	if c.Selection.Probability {
		p := c.Probability
		if p.StartingProbability <= 0 {
			return errors.New("probability.starting_probability must be positive")
		}
		if p.Multiplier <= 1 {
			return errors.New("probability.probability_multiplyer must be greater than 1")
		}
		if p.MaxIterations < 1 {
			return errors.New("probability.max_iterations must be at least 1")
		}
	}
	if c.Selection.Similarity {
		s := c.Similarity
		if s.StartingDeviation <= 0 {
			return errors.New("similarity.starting_deviation must be positive")
		}
		if s.Multiplier <= 1 {
			return errors.New("similarity.probability_multiplyer must be greater than 1")
		}
		if s.MaxIterations < 1 {
			return errors.New("similarity.max_iterations must be at least 1")
		}
	}
	if c.Selection.Randomizer {
		r := c.Randomizer
		if r.NumParams < 1 || r.Iterations < 0 || r.Workers < 1 {
			return errors.New("randomizer needs num_params >= 1, iterations >= 0 and workers >= 1")
		}
		if r.StepSize < 0 {
			return errors.New("randomizer.step_size must not be negative")
		}
	}
	return nil
}

// ParseConfig decodes a JSON or YAML learn config.
func ParseConfig(data []byte) (Config, error) {
	if strings.TrimSpace(string(data)) == "" {
		return Config{}, ErrEmptyConfig
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse learn config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid learn config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and parses the learn config at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read learn config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
