package learn

import (
	"log/slog"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
)

// PruneCount drops every gram whose reconstructed occurrence count,
// probability*TotalSamples + cfg.AdjustAmount, is at most cfg.MinCount.
// It is a single filtering pass with no accuracy check.
func PruneCount(m *ngram.Model, cfg CountConfig) (*ngram.Model, int) {
	out := m.Clone()
	removed := 0
	for _, lt := range out.Orders {
		for _, table := range lt {
			total := float64(table.TotalSamples)
			for g, p := range table.Probabilities {
				if p*total+cfg.AdjustAmount <= float64(cfg.MinCount) {
					delete(table.Probabilities, g)
					removed++
				}
			}
		}
	}

	metrics.PrunedGrams.WithLabelValues(StrategyCount).Add(float64(removed))
	slog.Info("Pruned by count",
		"removed", removed,
		"words_left", len(out.Words()))
	return out, removed
}
