package ngram

import (
	"time"

	"tweet-classifier/src/metrics"
	"tweet-classifier/src/tweets"
	"tweet-classifier/src/workers"
)

// ValidateWorkers is the fan-out used for accuracy checks.
const ValidateWorkers = 16

// Progress is reported after each validation chunk is collected.
type Progress struct {
	Correct int
	Done    int
	Total   int
}

// Accuracy is the fraction correct among the records processed so far.
func (p Progress) Accuracy() float64 {
	if p.Done == 0 {
		return 0
	}
	return float64(p.Correct) / float64(p.Done)
}

// Complete is the fraction of records processed.
func (p Progress) Complete() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// Validate classifies every sample and returns the fraction whose predicted
// label matches exactly.
func Validate(m *Model, samples []tweets.Sample) (float64, error) {
	return Evaluate(m, samples, ValidateWorkers, nil)
}

// Evaluate is Validate with a configurable fan-out and an optional progress
// callback.
func Evaluate(m *Model, samples []tweets.Sample, numWorkers int, onProgress func(Progress)) (float64, error) {
	if m.Empty() {
		return 0, ErrEmptyModel
	}
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	start := time.Now()
	work := func(model *Model, chunk []tweets.Sample) ([]bool, error) {
		correct := make([]bool, 0, len(chunk))
		for _, s := range chunk {
			correct = append(correct, Classify(model, s.Text) == s.Label)
		}
		return correct, nil
	}

	var progress workers.ProgressFunc[bool]
	if onProgress != nil {
		progress = func(results []bool, done, total int) {
			onProgress(Progress{Correct: countTrue(results), Done: done, Total: total})
		}
	}

	results, err := workers.Run(samples, m, numWorkers, work, progress)
	if err != nil {
		return 0, err
	}
	metrics.ValidationDuration.Observe(time.Since(start).Seconds())

	return float64(countTrue(results)) / float64(len(samples)), nil
}

func countTrue(results []bool) int {
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}
