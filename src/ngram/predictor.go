package ngram

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/workers"
)

// DefaultCacheSize bounds the sentence cache of a Predictor.
const DefaultCacheSize = 4096

// Predictor serves predictions from a fixed model. The model must not be
// mutated after NewPredictor; Classify is deterministic, so cached labels
// stay valid for the predictor's lifetime.
type Predictor struct {
	model *Model
	vocab *Vocabulary
	cache *lru.Cache[string, string]
}

// NewPredictor wraps m with a vocabulary filter and a sentence cache of
// cacheSize entries (DefaultCacheSize when cacheSize < 1).
func NewPredictor(m *Model, cacheSize int) (*Predictor, error) {
	if m.Empty() {
		return nil, ErrEmptyModel
	}
	if cacheSize < 1 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}
	return &Predictor{model: m, vocab: NewVocabulary(m), cache: cache}, nil
}

// Vocabulary returns the model's gram filter.
func (p *Predictor) Vocabulary() *Vocabulary {
	return p.vocab
}

// Predict classifies one cleaned sentence.
func (p *Predictor) Predict(sentence string) string {
	if label, ok := p.cache.Get(sentence); ok {
		metrics.PredictionCacheHits.Inc()
		metrics.Predictions.WithLabelValues(label).Inc()
		return label
	}
	label := classify(p.model, sentence, p.vocab)
	p.cache.Add(sentence, label)
	metrics.Predictions.WithLabelValues(label).Inc()
	return label
}

// Clone returns a worker handle. Model, filter and cache are shared: the
// first two are read-only after NewPredictor and the cache is safe for
// concurrent use.
func (p *Predictor) Clone() *Predictor {
	return &Predictor{model: p.model, vocab: p.vocab, cache: p.cache}
}

// PredictBatch classifies sentences in parallel, returning labels in input
// order.
func (p *Predictor) PredictBatch(sentences []string, numWorkers int) ([]string, error) {
	work := func(pred *Predictor, chunk []string) ([]string, error) {
		labels := make([]string, 0, len(chunk))
		for _, s := range chunk {
			labels = append(labels, pred.Predict(s))
		}
		return labels, nil
	}
	return workers.Run(sentences, p, numWorkers, work, nil)
}
