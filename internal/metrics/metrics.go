// Package metrics exposes Prometheus instrumentation for training runs,
// artifact loading and predictions.
package metrics

import (
	"time"

	apperrors "cropyield/internal/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inference Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropyield_predictions_total",
			Help: "Total number of prediction requests by outcome",
		},
		[]string{"outcome"}, // "ok" or the error kind
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cropyield_prediction_duration_seconds",
			Help:    "Duration of single predictions in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	ArtifactLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropyield_artifact_loads_total",
			Help: "Total number of artifact load attempts by result",
		},
		[]string{"result"},
	)

	// Training Metrics
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cropyield_training_runs_total",
			Help: "Total number of training runs by result",
		},
		[]string{"result"},
	)

	CandidateRSquared = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cropyield_candidate_r_squared",
			Help: "Held-out R-squared of each candidate in the latest training run",
		},
		[]string{"model"},
	)
)

// outcome labels an error by its taxonomy kind.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.Kind(err)
}

// RecordPrediction records one prediction call
func RecordPrediction(duration time.Duration, err error) {
	PredictionsTotal.WithLabelValues(outcome(err)).Inc()
	PredictionDuration.Observe(duration.Seconds())
}

// RecordArtifactLoad records one artifact load attempt
func RecordArtifactLoad(err error) {
	ArtifactLoadsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordTrainingRun records the end of a training run
func RecordTrainingRun(err error) {
	TrainingRunsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordCandidateScore sets the candidate's latest held-out R-squared.
// Unscored candidates are removed so stale values do not linger.
func RecordCandidateScore(model string, rSquared *float64) {
	if rSquared == nil {
		CandidateRSquared.DeleteLabelValues(model)
		return
	}
	CandidateRSquared.WithLabelValues(model).Set(*rSquared)
}
