package ngram

import (
	"log/slog"
	"math"
	"sort"

	"tweet-classifier/src/tweets"
)

// countEpsilon absorbs float noise when turning a stored probability back
// into a count: 3.0/10*10 evaluates to 3.0000000000000004, which must
// reconstruct as 3, not 4.
const countEpsilon = 1e-9

// reconstructCount recovers ceil(p*n), the occurrence count a probability
// was estimated from.
func reconstructCount(p float64, n int) int {
	c := math.Ceil(p*float64(n) - countEpsilon)
	if c < 0 {
		return 0
	}
	return int(c)
}

// TrainTable estimates gram probabilities of one order from texts and merges
// them into prior. The merged probability of gram g is
//
//	(count(g in texts) + ceil(p_old*n_old)) / (n_old + len(texts))
//
// so training can be repeated without keeping raw counts. Grams only present
// in prior go through the same formula with a zero new count. prior is not
// modified.
func TrainTable(texts []string, order int, prior *GramTable) *GramTable {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, g := range Grams(text, order) {
			counts[g]++
		}
	}

	oldTotal := 0
	var oldProbs map[string]float64
	if prior != nil {
		oldTotal = prior.TotalSamples
		oldProbs = prior.Probabilities
	}

	total := oldTotal + len(texts)
	table := &GramTable{
		TotalSamples:  total,
		Probabilities: make(map[string]float64, len(counts)+len(oldProbs)),
	}
	if total == 0 {
		return table
	}

	for g, p := range oldProbs {
		if _, ok := counts[g]; ok {
			continue
		}
		if c := reconstructCount(p, oldTotal); c > 0 {
			table.Probabilities[g] = float64(c) / float64(total)
		}
	}
	for g, c := range counts {
		old := 0
		if p, ok := oldProbs[g]; ok {
			old = reconstructCount(p, oldTotal)
		}
		table.Probabilities[g] = float64(c+old) / float64(total)
	}
	return table
}

// groupByLabel partitions texts by label, dropping rows with an empty label.
func groupByLabel(samples []tweets.Sample) (map[string][]string, int) {
	groups := make(map[string][]string)
	dropped := 0
	for _, s := range samples {
		if s.Label == "" {
			dropped++
			continue
		}
		groups[s.Label] = append(groups[s.Label], s.Text)
	}
	return groups, dropped
}

// Train builds a fresh model of maxOrder orders from samples.
func Train(samples []tweets.Sample, maxOrder int) (*Model, error) {
	m, err := NewModel(maxOrder)
	if err != nil {
		return nil, err
	}
	m.Train(samples)
	return m, nil
}

// Train merges samples into every order of the model. Each (label, order)
// table is re-estimated independently with TrainTable.
func (m *Model) Train(samples []tweets.Sample) {
	groups, dropped := groupByLabel(samples)
	if dropped > 0 {
		slog.Warn("Discarded samples with empty label", "dropped", dropped)
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for i, lt := range m.Orders {
		order := i + 1
		for _, label := range labels {
			lt[label] = TrainTable(groups[label], order, lt[label])
		}
	}
	m.normalizeLabels()

	slog.Info("Trained n-gram model",
		"samples", len(samples)-dropped,
		"labels", len(labels),
		"max_order", len(m.Orders),
		"entries", m.TotalEntries())
}
