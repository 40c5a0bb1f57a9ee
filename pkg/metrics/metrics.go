// Package metrics defines the Prometheus collectors for evaluation runs and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for an evaluation process.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	QueriesTotal       *prometheus.CounterVec
	QueryDuration      prometheus.Histogram
	CandidatesPerQuery prometheus.Histogram
	RankingsTotal      prometheus.Counter
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	RetriesTotal       *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
	SettingScore       *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Tests pass a
// fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layereval_runs_total",
				Help: "Evaluation runs by outcome (ok, error).",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layereval_run_duration_seconds",
				Help:    "Wall time of a full evaluation run.",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layereval_queries_total",
				Help: "Queries processed by outcome (ok, failed).",
			},
			[]string{"status"},
		),
		QueryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layereval_query_duration_seconds",
				Help:    "Time to match, rank and score one query across all settings.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		CandidatesPerQuery: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "layereval_candidates_per_query",
				Help:    "Distinct candidate documents matched per query.",
				Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
			},
		),
		RankingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "layereval_rankings_total",
				Help: "Rankings produced, one per query and setting.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "layereval_doc_cache_hits_total",
				Help: "Document vector cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "layereval_doc_cache_misses_total",
				Help: "Document vector cache misses.",
			},
		),
		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "layereval_retries_total",
				Help: "Retried calls to remote collaborators by operation.",
			},
			[]string{"operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "layereval_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		SettingScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "layereval_setting_score",
				Help: "Averaged score of the last run per setting and measure.",
			},
			[]string{"setting", "measure"},
		),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.QueriesTotal,
		m.QueryDuration,
		m.CandidatesPerQuery,
		m.RankingsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RetriesTotal,
		m.BreakerState,
		m.SettingScore,
	)

	return m
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
