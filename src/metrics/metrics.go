// Package metrics holds the prometheus collectors shared by training,
// optimisation and serving. Collectors register on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ValidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tweet_classifier_validation_duration_seconds",
		Help:    "Time to score a model against a labelled dataset",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120},
	})

	OptimizerAccuracy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tweet_classifier_optimizer_accuracy",
		Help: "Accuracy of the last committed model per optimisation strategy",
	}, []string{"strategy"})

	OptimizerProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tweet_classifier_optimizer_probes_total",
		Help: "Candidate models validated per strategy and outcome",
	}, []string{"strategy", "outcome"})

	PrunedGrams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tweet_classifier_pruned_grams_total",
		Help: "Gram entries removed by committed pruning passes",
	}, []string{"strategy"})

	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tweet_classifier_predictions_total",
		Help: "Predictions served per label",
	}, []string{"label"})

	PredictionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tweet_classifier_prediction_cache_hits_total",
		Help: "Predictions answered from the sentence cache",
	})

	VocabularyCoverage = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tweet_classifier_vocabulary_coverage_ratio",
		Help:    "Mean share of tokens per served batch the model may know",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	QueueBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tweet_classifier_queue_backlog",
		Help: "Messages waiting on the input queue at the last progress report",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
