package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Match engine Prometheus metrics.
var (
	MatchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedymatch",
			Name:      "match_runs_total",
			Help:      "Total number of match runs",
		},
		[]string{"risk_override"}, // "true" / "false"
	)

	CandidatesScoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "remedymatch",
			Name:      "candidates_scored_total",
			Help:      "Total number of drug/remedy pairs scored",
		},
	)

	ResultsPerRun = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "remedymatch",
			Name:      "results_per_run",
			Help:      "Number of ranked results returned by a match run",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "remedymatch",
			Name:      "match_duration_seconds",
			Help:      "Match run duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	MappingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedymatch",
			Name:      "mappings_total",
			Help:      "Mappings offered to the store, by outcome",
		},
		[]string{"result"}, // "inserted" / "skipped"
	)

	BatchJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "remedymatch",
			Name:      "batch_jobs_total",
			Help:      "Batch match jobs by status",
		},
		[]string{"status"}, // "ok" / "error" / "cancelled"
	)
)

var registerOnce sync.Once

// Register registers the metrics with reg once. A nil reg uses the default registerer.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			MatchRunsTotal,
			CandidatesScoredTotal,
			ResultsPerRun,
			MatchDuration,
			MappingsTotal,
			BatchJobsTotal,
		)
	})
}
