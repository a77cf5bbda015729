package learn

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/ngram"
	"tweet-classifier/src/tweets"
	"tweet-classifier/src/workers"
)

// searchContext is the per-worker state of one randomizer iteration. Clone
// deep-copies the model so every candidate perturbs its own tables.
type searchContext struct {
	model   *ngram.Model
	words   []string
	samples []tweets.Sample
	cfg     RandomizerConfig
}

func (c searchContext) Clone() searchContext {
	c.model = c.model.Clone()
	return c
}

type candidate struct {
	model    *ngram.Model
	accuracy float64
}

// perturb nudges the probability of cfg.NumParams words drawn uniformly from
// words. Each label holding a drawn word moves it by +step or -step on its
// own coin flip. Probabilities are clamped to [0, 1].
func perturb(m *ngram.Model, words []string, cfg RandomizerConfig, rng *rand.Rand) {
	if len(words) == 0 {
		return
	}
	picked := make([]string, cfg.NumParams)
	for i := range picked {
		picked[i] = words[rng.IntN(len(words))]
	}

	for _, lt := range m.Orders {
		for _, label := range lt.Labels() {
			probs := lt[label].Probabilities
			for _, w := range picked {
				p, ok := probs[w]
				if !ok {
					continue
				}
				step := cfg.StepSize
				if rng.Float64() < 0.5 {
					step = -step
				}
				probs[w] = min(max(p+step, 0), 1)
			}
		}
	}
}

// accuracy scores m on the calling goroutine.
func accuracy(m *ngram.Model, samples []tweets.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for _, s := range samples {
		if ngram.Classify(m, s.Text) == s.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

// Randomize hill-climbs by random perturbation. Every iteration validates
// cfg.Workers perturbed copies of the current model in parallel and keeps the
// most accurate one if it beats the current accuracy strictly. Worse or equal
// candidates are always discarded.
func Randomize(m *ngram.Model, samples []tweets.Sample, baseline float64, cfg RandomizerConfig) (*ngram.Model, float64, error) {
	words := m.Words()
	if len(words) == 0 || cfg.NumParams < 1 {
		return m, baseline, nil
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	numWorkers := max(cfg.Workers, 1)

	work := func(ctx searchContext, seeds []uint64) ([]candidate, error) {
		out := make([]candidate, 0, len(seeds))
		for _, s := range seeds {
			model := ctx.model
			if len(seeds) > 1 {
				model = model.Clone()
			}
			perturb(model, ctx.words, ctx.cfg, rand.New(rand.NewPCG(s, s>>1)))
			out = append(out, candidate{model: model, accuracy: accuracy(model, ctx.samples)})
		}
		return out, nil
	}

	best, bestAcc := m, baseline
	improvedAt := time.Now()
	sinceImprovement := 0

	for i := 0; i < cfg.Iterations; i++ {
		if i%100 == 0 {
			slog.Info("Randomizer progress", "iteration", i, "accuracy", bestAcc)
		}
		seeds := make([]uint64, numWorkers)
		for j := range seeds {
			seeds[j] = rng.Uint64()
		}

		ctx := searchContext{model: best, words: words, samples: samples, cfg: cfg}
		results, err := workers.Run(seeds, ctx, numWorkers, work, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("randomizer iteration %d: %w", i, err)
		}
		sinceImprovement++

		winner := -1
		for j, c := range results {
			if c.accuracy > bestAcc && (winner < 0 || c.accuracy > results[winner].accuracy) {
				winner = j
			}
		}
		if winner < 0 {
			metrics.OptimizerProbes.WithLabelValues(StrategyRandomizer, "rejected").Add(float64(len(results)))
			continue
		}

		metrics.OptimizerProbes.WithLabelValues(StrategyRandomizer, "accepted").Inc()
		metrics.OptimizerProbes.WithLabelValues(StrategyRandomizer, "rejected").Add(float64(len(results) - 1))
		slog.Info("Randomizer improved",
			"iteration", i,
			"accuracy", results[winner].accuracy,
			"previous", bestAcc,
			"time_taken", time.Since(improvedAt),
			"iterations_needed", sinceImprovement)
		best, bestAcc = results[winner].model, results[winner].accuracy
		improvedAt = time.Now()
		sinceImprovement = 0
	}

	return best, bestAcc, nil
}
