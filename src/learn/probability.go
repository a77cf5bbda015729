package learn

import (
	"fmt"
	"log/slog"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/tweets"
)

// removeBelow returns a copy of m without grams whose probability is below
// threshold, and how many entries were dropped.
func removeBelow(m *ngram.Model, threshold float64) (*ngram.Model, int) {
	out := m.Clone()
	removed := 0
	for _, lt := range out.Orders {
		for _, table := range lt {
			for g, p := range table.Probabilities {
				if p < threshold {
					delete(table.Probabilities, g)
					removed++
				}
			}
		}
	}
	return out, removed
}

// PruneProbability raises a minimum-probability threshold until pruning at
// it costs more than cfg.MaxAccuracyReduction below baseline. Each accepted
// probe commits its model and multiplies the threshold; the first rejected
// probe ends the pass. The last committed model and its accuracy are
// returned, which is m and baseline when nothing was accepted.
func PruneProbability(m *ngram.Model, samples []tweets.Sample, baseline float64, cfg ProbabilityConfig) (*ngram.Model, float64, error) {
	target := baseline - cfg.MaxAccuracyReduction
	threshold := cfg.StartingProbability
	best, bestAcc := m, baseline

	for i := 0; i < cfg.MaxIterations; i++ {
		if best.TotalEntries() == 0 {
			break
		}
		candidate, removed := removeBelow(best, threshold)
		if removed == 0 {
			threshold *= cfg.Multiplier
			continue
		}

		acc, err := ngram.Validate(candidate, samples)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to validate probability threshold %g: %w", threshold, err)
		}
		slog.Info("Probability probe",
			"threshold", threshold,
			"removed", removed,
			"accuracy", acc,
			"target", target)

		if acc < target {
			metrics.OptimizerProbes.WithLabelValues(StrategyProbability, "rejected").Inc()
			threshold /= cfg.Multiplier
			break
		}
		metrics.OptimizerProbes.WithLabelValues(StrategyProbability, "accepted").Inc()
		metrics.PrunedGrams.WithLabelValues(StrategyProbability).Add(float64(removed))
		best, bestAcc = candidate, acc
		threshold *= cfg.Multiplier
	}

	slog.Info("Probability pruning complete",
		"threshold", threshold,
		"accuracy", bestAcc,
		"entries", best.TotalEntries())
	return best, bestAcc, nil
}
