// Package evaluation runs every layer setting over a query set: it matches
// candidates per layer, ranks them per setting, scores each ranking against
// the judgments and tests every setting against the baseline.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/evaluation/cache"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/setting"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/significance"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/metrics"
)

const (
	DefaultCutoff    = 10
	DefaultCacheSize = 10000
)

// Retriever returns the IDs of documents matching an OR query, at most
// maxDocs of them, in any order.
type Retriever interface {
	Match(ctx context.Context, q index.OrQuery, maxDocs int) ([]string, error)
}

// DocumentSource resolves a document ID to its vector.
type DocumentSource interface {
	Vector(ctx context.Context, docID string) (termvec.Vector, error)
}

// Options configures a Runner.
type Options struct {
	Layers      []string
	Baseline    []string
	MaxDocs     int
	Cutoff      int
	Workers     int
	CacheSize   int
	Measures    []scoring.Measure
	SortMeasure scoring.Measure
}

// OptionsFromConfig parses the measure names of cfg.
func OptionsFromConfig(cfg config.EvaluationConfig) (Options, error) {
	measures, err := scoring.ParseMeasures(cfg.Measures)
	if err != nil {
		return Options{}, err
	}
	sortMeasure, err := scoring.ParseMeasure(cfg.SortMeasure)
	if err != nil {
		return Options{}, fmt.Errorf("parsing sort measure: %w", err)
	}
	return Options{
		Layers:      cfg.Layers,
		Baseline:    cfg.Baseline,
		MaxDocs:     cfg.MaxDocs,
		Cutoff:      cfg.Cutoff,
		Workers:     cfg.Workers,
		CacheSize:   cfg.CacheSize,
		Measures:    measures,
		SortMeasure: sortMeasure,
	}, nil
}

// Components are the collaborators of a Runner. Cache, Metrics and Logger
// are optional.
type Components struct {
	Ranker     ranker.Ranker
	Tester     significance.Tester
	Retriever  Retriever
	Documents  DocumentSource
	Statistics ranker.Statistics
	Cache      *cache.DocCache
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Runner evaluates query sets. A Runner may be reused; its document cache
// is purged at the start of every run.
type Runner struct {
	opts      Options
	settings  []setting.Setting
	baseline  setting.Setting
	ranker    ranker.Ranker
	tester    significance.Tester
	retriever Retriever
	docs      DocumentSource
	stats     ranker.Statistics
	cache     *cache.DocCache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New validates opts and enumerates the settings. All errors are
// configuration errors.
func New(opts Options, c Components) (*Runner, error) {
	if c.Ranker == nil || c.Tester == nil || c.Retriever == nil || c.Documents == nil || c.Statistics == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "ranker, tester, retriever, documents and statistics are required")
	}
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxDocs <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "maxDocs must be positive, got %d", opts.MaxDocs)
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if len(opts.Measures) == 0 {
		opts.Measures = []scoring.Measure{scoring.PrecisionAt(opts.Cutoff), scoring.MRR, scoring.NDCG, scoring.MAP}
	}
	for _, m := range append([]scoring.Measure{opts.SortMeasure}, opts.Measures...) {
		if m.N > opts.Cutoff {
			return nil, apperrors.Newf(apperrors.ErrInvalidMeasure, "%s exceeds cutoff %d", m, opts.Cutoff)
		}
	}

	settings, err := setting.Enumerate(opts.Layers)
	if err != nil {
		return nil, err
	}
	baseline, err := setting.Baseline(settings, opts.Baseline)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		opts:      opts,
		settings:  settings,
		baseline:  baseline,
		ranker:    c.Ranker,
		tester:    c.Tester,
		retriever: c.Retriever,
		docs:      c.Documents,
		stats:     c.Statistics,
		cache:     c.Cache,
		metrics:   c.Metrics,
		logger:    c.Logger,
	}
	if r.metrics == nil {
		r.metrics = metrics.New(prometheus.NewRegistry())
	}
	if r.logger == nil {
		r.logger = slog.Default().With("component", "evaluation")
	}
	if r.cache == nil {
		r.cache, err = cache.New(opts.CacheSize, r.metrics)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Settings returns the enumerated settings in index order.
func (r *Runner) Settings() []setting.Setting { return r.settings }

func (r *Runner) Baseline() setting.Setting { return r.baseline }
