package learn

import (
	"fmt"
	"log/slog"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/tweets"
)

// spread returns max-min of gram's probabilities over the labels that hold
// it, and how many labels hold it.
func spread(lt ngram.LabelTables, gram string) (float64, int) {
	lo, hi := 0.0, 0.0
	n := 0
	for _, table := range lt {
		p, ok := table.Probabilities[gram]
		if !ok {
			continue
		}
		if n == 0 || p < lo {
			lo = p
		}
		if n == 0 || p > hi {
			hi = p
		}
		n++
	}
	return hi - lo, n
}

// similarGrams lists, per order, the grams held by at least two labels whose
// probabilities differ by at most deviation. A gram one label owns alone
// always discriminates and is never listed.
func similarGrams(m *ngram.Model, deviation float64) []map[string]bool {
	out := make([]map[string]bool, len(m.Orders))
	for i, lt := range m.Orders {
		out[i] = make(map[string]bool)
		for _, table := range lt {
			for g := range table.Probabilities {
				if _, done := out[i][g]; done {
					continue
				}
				d, n := spread(lt, g)
				out[i][g] = n >= 2 && d <= deviation
			}
		}
	}
	return out
}

// removeSimilar returns a copy of m without the grams similarGrams selects,
// and how many (label, gram) entries were dropped.
func removeSimilar(m *ngram.Model, deviation float64) (*ngram.Model, int) {
	similar := similarGrams(m, deviation)
	out := m.Clone()
	removed := 0
	for i, lt := range out.Orders {
		for _, table := range lt {
			for g := range table.Probabilities {
				if similar[i][g] {
					delete(table.Probabilities, g)
					removed++
				}
			}
		}
	}
	return out, removed
}

// sharedEntries counts the entries removeSimilar could ever drop.
func sharedEntries(m *ngram.Model) int {
	n := 0
	for _, lt := range m.Orders {
		for _, table := range lt {
			for g := range table.Probabilities {
				if _, holders := spread(lt, g); holders >= 2 {
					n++
				}
			}
		}
	}
	return n
}

// PruneSimilarity removes grams that do not discriminate between labels:
// grams whose probability deviates by no more than a threshold across every
// label holding them.
//
// The walk has two phases. While no acceptable deviation has been found, a
// probe scoring below baseline - cfg.MaxAccuracyReduction divides the
// deviation and retries. Once a probe is accepted, every accepted probe
// commits and multiplies the deviation, and the first rejected probe divides
// it back and ends the pass. Probes always prune from m, so a larger deviation
// removes a superset of a smaller one.
func PruneSimilarity(m *ngram.Model, samples []tweets.Sample, baseline float64, cfg SimilarityConfig) (*ngram.Model, float64, error) {
	return pruneSimilarity(m, samples, baseline, cfg, nil)
}

// pruneSimilarity runs the walk, calling onProbe (when non-nil) with every
// probed deviation and whether it was accepted.
func pruneSimilarity(m *ngram.Model, samples []tweets.Sample, baseline float64, cfg SimilarityConfig, onProbe func(deviation float64, accepted bool)) (*ngram.Model, float64, error) {
	target := baseline - cfg.MaxAccuracyReduction
	deviation := cfg.StartingDeviation
	best, bestAcc := m, baseline
	foundLow := false
	removable := sharedEntries(m)

	for i := 0; i < cfg.MaxIterations && removable > 0; i++ {
		candidate, removed := removeSimilar(m, deviation)

		acc := baseline
		if removed > 0 {
			var err error
			acc, err = ngram.Validate(candidate, samples)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to validate deviation %g: %w", deviation, err)
			}
		}
		slog.Info("Similarity probe",
			"deviation", deviation,
			"removed", removed,
			"accuracy", acc,
			"target", target,
			"found_low", foundLow)
		if onProbe != nil {
			onProbe(deviation, acc >= target)
		}

		if acc < target {
			metrics.OptimizerProbes.WithLabelValues(StrategySimilarity, "rejected").Inc()
			deviation /= cfg.Multiplier
			if !foundLow {
				continue
			}
			break
		}

		foundLow = true
		metrics.OptimizerProbes.WithLabelValues(StrategySimilarity, "accepted").Inc()
		best, bestAcc = candidate, acc
		if removed == removable {
			break
		}
		deviation *= cfg.Multiplier
	}

	if pruned := m.TotalEntries() - best.TotalEntries(); pruned > 0 {
		metrics.PrunedGrams.WithLabelValues(StrategySimilarity).Add(float64(pruned))
	}
	slog.Info("Similarity pruning complete",
		"deviation", deviation,
		"accuracy", bestAcc,
		"entries", best.TotalEntries())
	return best, bestAcc, nil
}
