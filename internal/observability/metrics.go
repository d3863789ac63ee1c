package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	graderRequestsTotal   *prometheus.CounterVec
	graderLatencySeconds  *prometheus.HistogramVec
	graderErrorsTotal     *prometheus.CounterVec
	gradingRunsTotal      *prometheus.CounterVec
	gradingDuration       prometheus.Histogram
	testCasesTotal        *prometheus.CounterVec
	similarityFlagsTotal  prometheus.Counter
	predictorFallbacks    *prometheus.CounterVec
	trainingRunsTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the grader API and engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		graderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_requests_total",
			Help: "Total number of grader API requests served.",
		}, []string{"method", "route", "status"})

		graderLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_latency_seconds",
			Help:    "Latency distribution for grader API requests.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"method", "route"})

		graderErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_errors_total",
			Help: "Total number of error responses returned by grader endpoints.",
		}, []string{"method", "route", "status"})

		gradingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_runs_total",
			Help: "Grading runs by terminal outcome.",
		}, []string{"outcome"})

		gradingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "Wall-clock duration of a full grading run.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		})

		testCasesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_test_cases_total",
			Help: "Executed test cases by status.",
		}, []string{"status"})

		similarityFlagsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_similarity_flags_total",
			Help: "Submissions flagged for high similarity to a peer.",
		})

		predictorFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_predictor_fallbacks_total",
			Help: "Gradings that used heuristic scores only, by reason.",
		}, []string{"reason"})

		trainingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "predictor_training_runs_total",
			Help: "Model retraining runs by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			graderRequestsTotal, graderLatencySeconds, graderErrorsTotal,
			gradingRunsTotal, gradingDuration, testCasesTotal,
			similarityFlagsTotal, predictorFallbacks, trainingRunsTotal,
		)
	})
}

// GraderRequests exposes the counter for grader requests.
func GraderRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return graderRequestsTotal
}

// GraderLatency exposes the latency histogram for grader requests.
func GraderLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return graderLatencySeconds
}

// GraderErrors exposes the counter for grader error responses.
func GraderErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return graderErrorsTotal
}

// GradingRuns counts grading runs labelled by outcome ("done" or "failed").
func GradingRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRunsTotal
}

// GradingDuration exposes the grading run histogram.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDuration
}

// TestCases counts executed test cases labelled by status.
func TestCases() *prometheus.CounterVec {
	RegisterMetrics()
	return testCasesTotal
}

// SimilarityFlags counts flagged submissions.
func SimilarityFlags() prometheus.Counter {
	RegisterMetrics()
	return similarityFlagsTotal
}

// PredictorFallbacks counts heuristic-only gradings.
func PredictorFallbacks() *prometheus.CounterVec {
	RegisterMetrics()
	return predictorFallbacks
}

// TrainingRuns counts retraining attempts.
func TrainingRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return trainingRunsTotal
}
