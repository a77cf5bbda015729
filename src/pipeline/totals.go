package pipeline

import (
	"sort"

	"tweet-classifier/src/workers"
)

// MaxTransitions is how many "to" entries FeedTotalsMulti keeps per "from".
const MaxTransitions = 100

// StateTotals counts observed pairs: from -> to -> occurrences.
type StateTotals map[string]map[string]int

// Pair is one observed (from, to) transition.
type Pair struct {
	From string
	To   string
}

// TokenCount is a token with its count.
type TokenCount struct {
	Token string
	Count int
}

// FeedTotals records one (from, to) observation in totals.
func FeedTotals(totals StateTotals, from, to string) {
	inner, ok := totals[from]
	if !ok {
		inner = make(map[string]int)
		totals[from] = inner
	}
	inner[to]++
}

// noContext is the empty worker context for aggregations that need no state.
type noContext struct{}

func (noContext) Clone() noContext { return noContext{} }

// FeedTotalsMulti counts pairs on numWorkers goroutines and merges the
// chunk-local totals with initial, which is not modified. Pairs with an
// empty "to" are dropped, each "from" keeps only its MaxTransitions most
// frequent "to" entries, and a "from" left with nothing is omitted.
func FeedTotalsMulti(pairs []Pair, initial StateTotals, numWorkers int) (StateTotals, error) {
	work := func(_ noContext, chunk []Pair) ([]StateTotals, error) {
		local := make(StateTotals)
		for _, p := range chunk {
			if p.To == "" {
				continue
			}
			FeedTotals(local, p.From, p.To)
		}
		return []StateTotals{local}, nil
	}

	partials, err := workers.Run(pairs, noContext{}, numWorkers, work, nil)
	if err != nil {
		return nil, err
	}

	merged := make(StateTotals)
	for _, part := range append([]StateTotals{initial}, partials...) {
		for from, inner := range part {
			for to, n := range inner {
				if to == "" || n <= 0 {
					continue
				}
				if merged[from] == nil {
					merged[from] = make(map[string]int)
				}
				merged[from][to] += n
			}
		}
	}

	for from, inner := range merged {
		top := TopTokens(inner, MaxTransitions)
		if len(top) == 0 {
			delete(merged, from)
			continue
		}
		if len(top) < len(inner) {
			kept := make(map[string]int, len(top))
			for _, tc := range top {
				kept[tc.Token] = tc.Count
			}
			merged[from] = kept
		}
	}
	return merged, nil
}

// TopTokens returns up to n entries of counts ordered by count descending,
// then token ascending. n < 1 returns every entry.
func TopTokens(counts map[string]int, n int) []TokenCount {
	out := make([]TokenCount, 0, len(counts))
	for token, count := range counts {
		out = append(out, TokenCount{Token: token, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
