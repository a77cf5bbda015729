package ngram

import (
	"github.com/bits-and-blooms/bloom/v3"
)

// vocabularyFalsePositiveRate keeps wasted table scans rare without letting
// the filter grow past a few bits per gram.
const vocabularyFalsePositiveRate = 0.01

// Vocabulary is a Bloom filter over every gram in a model, across all labels
// and orders. A negative answer proves no table holds the gram; a positive
// answer still requires the table scan.
type Vocabulary struct {
	filter *bloom.BloomFilter
	grams  uint
}

// NewVocabulary builds the filter for m.
func NewVocabulary(m *Model) *Vocabulary {
	distinct := make(map[string]struct{})
	for _, lt := range m.Orders {
		for _, table := range lt {
			for g := range table.Probabilities {
				distinct[g] = struct{}{}
			}
		}
	}

	n := uint(len(distinct))
	if n == 0 {
		n = 1
	}
	bf := bloom.NewWithEstimates(n, vocabularyFalsePositiveRate)
	for g := range distinct {
		bf.AddString(g)
	}
	return &Vocabulary{filter: bf, grams: uint(len(distinct))}
}

// MayContain reports whether gram might be in the model.
func (v *Vocabulary) MayContain(gram string) bool {
	return v.filter.TestString(gram)
}

// Len returns the number of distinct grams the filter was built from.
func (v *Vocabulary) Len() uint {
	return v.grams
}

// Coverage returns the fraction of tokens in sentence the filter may know.
func (v *Vocabulary) Coverage(sentence string) float64 {
	tokens := Tokenize(sentence)
	if len(tokens) == 0 {
		return 0
	}
	known := 0
	for _, t := range tokens {
		if v.MayContain(t) {
			known++
		}
	}
	return float64(known) / float64(len(tokens))
}
