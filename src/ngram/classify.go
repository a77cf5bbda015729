package ngram

// Inconclusive is returned when no gram of the sentence is known to any label.
const Inconclusive = "Inconclusive"

// gramFilter lets the predictor rule out grams before scanning label tables.
// It must never reject a gram that is present in some table.
type gramFilter interface {
	MayContain(gram string) bool
}

// TestGram returns the label whose table gives gram the highest probability,
// or "" when no table holds it. Labels are scanned in ascending order and only
// a strictly higher probability replaces the current best, so the first
// maximal label wins.
func TestGram(tables LabelTables, gram string) string {
	return testGram(tables, tables.Labels(), gram)
}

func testGram(tables LabelTables, labels []string, gram string) string {
	best := ""
	bestProb := 0.0
	for _, label := range labels {
		p, ok := tables[label].Probabilities[gram]
		if !ok {
			continue
		}
		if p > bestProb {
			best = label
			bestProb = p
		}
	}
	return best
}

// Classify predicts a label for a cleaned sentence by multi-order voting.
//
// Orders are visited longest first. Every gram that some label owns casts one
// vote for its owner, except that each distinct first token votes at most
// once across all orders: once the trigram starting at "good" has voted, the
// bigram and unigram starting at "good" are ignored. The label with most votes
// wins; ties go to the lexicographically smallest label.
func Classify(m *Model, sentence string) string {
	return classify(m, sentence, nil)
}

func classify(m *Model, sentence string, filter gramFilter) string {
	return winner(tally(m, sentence, filter))
}

// tally counts the votes each label receives for sentence.
func tally(m *Model, sentence string, filter gramFilter) map[string]int {
	tokens := Tokenize(sentence)
	votes := make(map[string]int)
	visited := make(map[string]bool)

	for order := len(m.Orders); order >= 1; order-- {
		tables := m.Orders[order-1]
		labels := tables.Labels()
		for _, gram := range gramsFromTokens(tokens, order) {
			if filter != nil && !filter.MayContain(gram) {
				continue
			}
			label := testGram(tables, labels, gram)
			if label == "" {
				continue
			}
			first := firstToken(gram)
			if visited[first] {
				continue
			}
			visited[first] = true
			votes[label]++
		}
	}
	return votes
}

// winner picks the most-voted label, breaking ties lexicographically.
func winner(votes map[string]int) string {
	best := ""
	bestVotes := 0
	for label, n := range votes {
		if n > bestVotes || (n == bestVotes && label < best) {
			best = label
			bestVotes = n
		}
	}
	if best == "" {
		return Inconclusive
	}
	return best
}
