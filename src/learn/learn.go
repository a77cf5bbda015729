// Package learn tunes a trained n-gram model against a labelled dataset.
//
// Every strategy is a pure step from (model, samples, baseline, config) to a
// new model and its accuracy. Learn folds the selected steps in a fixed order
// and threads each step's accuracy into the next as its baseline.
package learn

import (
	"fmt"
	"log/slog"
	"time"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/tweets"
)

// Strategy names, in the order Learn runs them. They name the learn config
// keys and label the optimizer metrics.
const (
	StrategySimilarity  = "similarity"
	StrategyProbability = "probability"
	StrategyRandomizer  = "randomizer"
	StrategyCount       = "count"
)

// Stage records the outcome of one strategy.
type Stage struct {
	Strategy string
	Accuracy float64
	Entries  int
	Duration time.Duration
}

// Report summarises a Learn run.
type Report struct {
	Baseline float64
	Stages   []Stage
}

// Final returns the accuracy after the last stage, or the baseline when no
// stage ran.
func (r Report) Final() float64 {
	if len(r.Stages) == 0 {
		return r.Baseline
	}
	return r.Stages[len(r.Stages)-1].Accuracy
}

type step struct {
	strategy string
	selected bool
	run      func(m *ngram.Model, baseline float64) (*ngram.Model, float64, error)
}

// Learn runs the strategies cfg selects in the order similarity, probability,
// randomizer, count. m is not modified; the tuned model is returned.
func Learn(m *ngram.Model, samples []tweets.Sample, cfg Config) (*ngram.Model, Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Report{}, fmt.Errorf("invalid learn config: %w", err)
	}

	slog.Info("Running learning procedure",
		"inputs", len(samples),
		"entries", m.TotalEntries(),
		"similarity", cfg.Selection.Similarity,
		"probability", cfg.Selection.Probability,
		"randomizer", cfg.Selection.Randomizer,
		"count", cfg.Selection.Count)

	baseline, err := ngram.Validate(m, samples)
	if err != nil {
		return nil, Report{}, fmt.Errorf("failed to measure baseline accuracy: %w", err)
	}
	report := Report{Baseline: baseline}
	slog.Info("Baseline accuracy", "accuracy", baseline)

	steps := []step{
		{StrategySimilarity, cfg.Selection.Similarity, func(m *ngram.Model, b float64) (*ngram.Model, float64, error) {
			return PruneSimilarity(m, samples, b, cfg.Similarity)
		}},
		{StrategyProbability, cfg.Selection.Probability, func(m *ngram.Model, b float64) (*ngram.Model, float64, error) {
			return PruneProbability(m, samples, b, cfg.Probability)
		}},
		{StrategyRandomizer, cfg.Selection.Randomizer, func(m *ngram.Model, b float64) (*ngram.Model, float64, error) {
			return Randomize(m, samples, b, cfg.Randomizer)
		}},
		{StrategyCount, cfg.Selection.Count, func(m *ngram.Model, _ float64) (*ngram.Model, float64, error) {
			pruned, _ := PruneCount(m, cfg.Count)
			acc, err := ngram.Validate(pruned, samples)
			return pruned, acc, err
		}},
	}

	current, acc := m, baseline
	for _, s := range steps {
		if !s.selected {
			continue
		}
		start := time.Now()
		next, nextAcc, err := s.run(current, acc)
		if err != nil {
			return nil, report, fmt.Errorf("%s pass failed: %w", s.strategy, err)
		}
		current, acc = next, nextAcc

		stage := Stage{
			Strategy: s.strategy,
			Accuracy: acc,
			Entries:  current.TotalEntries(),
			Duration: time.Since(start),
		}
		report.Stages = append(report.Stages, stage)
		metrics.OptimizerAccuracy.WithLabelValues(s.strategy).Set(acc)
		slog.Info("Learning stage complete",
			"strategy", stage.Strategy,
			"accuracy", stage.Accuracy,
			"entries", stage.Entries,
			"duration", stage.Duration)
	}

	return current, report, nil
}
