package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/setting"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/tracing"
)

// Run evaluates every setting over queries. Queries whose retrieval or
// document lookup fails are logged, listed in Report.Failures and left out
// of every aggregate. Only cancellation of ctx aborts the run.
//
// Queries are processed by a bounded worker pool; aggregation happens
// afterwards in query order, so the report does not depend on the number
// of workers.
func (r *Runner) Run(ctx context.Context, queries []corpus.Query, judgments corpus.Judgments) (*Report, error) {
	start := time.Now()
	log := r.runLogger(ctx)
	ctx, span := tracing.StartChild(ctx, "evaluate")
	defer span.End()
	r.cache.Purge()

	log.Info("evaluation started",
		"queries", len(queries),
		"settings", len(r.settings),
		"baseline", r.baseline.Label,
		"workers", r.opts.Workers,
	)

	results := make([]*QueryResult, len(queries))
	failures := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			queryStart := time.Now()
			res, err := r.evaluateQuery(gctx, q, judgments.For(q.ID))
			r.metrics.QueryDuration.Observe(time.Since(queryStart).Seconds())
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.metrics.QueriesTotal.WithLabelValues("failed").Inc()
				log.Warn("query excluded from evaluation", "query_id", q.ID, "error", err)
				failures[i] = err
				return nil
			}
			r.metrics.QueriesTotal.WithLabelValues("ok").Inc()
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("evaluation aborted: %w", err)
	}

	_, aggSpan := tracing.StartChild(ctx, "aggregate")
	report := r.aggregate(queries, results, failures)
	aggSpan.End()
	span.SetAttr("queries", len(report.Queries))
	span.SetAttr("failed", len(report.Failures))
	report.RunID = logger.RunID(ctx)
	report.Duration = time.Since(start)

	r.metrics.RunsTotal.WithLabelValues("ok").Inc()
	r.metrics.RunDuration.Observe(report.Duration.Seconds())
	for _, s := range report.Settings {
		for _, m := range report.Measures {
			r.metrics.SettingScore.WithLabelValues(s.Setting.Label, m.String()).Set(s.Score.Get(m))
		}
	}
	hits, misses := r.cache.Stats()
	log.Info("evaluation finished",
		"evaluated", len(report.Queries),
		"failed", len(report.Failures),
		"duration", report.Duration,
		"cache_hits", hits,
		"cache_misses", misses,
	)
	return report, nil
}

func (r *Runner) runLogger(ctx context.Context) *slog.Logger {
	if id := logger.RunID(ctx); id != "" {
		return r.logger.With("run_id", id)
	}
	return r.logger
}

// evaluateQuery matches, ranks and scores one query under every setting.
func (r *Runner) evaluateQuery(ctx context.Context, q corpus.Query, relevances map[string]float64) (*QueryResult, error) {
	matched := make(map[string][]string, len(r.opts.Layers))
	for _, layer := range r.opts.Layers {
		oq := index.NewOrQuery(q.Terms, layer, r.ranker.Fields(layer))
		if oq.IsEmpty() {
			continue
		}
		ids, err := r.retriever.Match(ctx, oq, r.opts.MaxDocs)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrQueryFailed, "query %s: matching layer %s: %v", q.ID, layer, err)
		}
		matched[layer] = ids
	}

	vectors := make(map[string]termvec.Vector)
	for _, layer := range r.opts.Layers {
		for _, id := range matched[layer] {
			if _, ok := vectors[id]; ok {
				continue
			}
			vec, err := r.cache.GetOrLoad(ctx, id, r.docs.Vector)
			if err != nil {
				return nil, apperrors.Newf(apperrors.ErrQueryFailed, "query %s: %v", q.ID, err)
			}
			vectors[id] = vec
		}
	}
	r.metrics.CandidatesPerQuery.Observe(float64(len(vectors)))

	res := &QueryResult{
		QueryID:       q.ID,
		NumCandidates: len(vectors),
		NumRelevant:   countRelevant(relevances),
		Settings:      make([]SettingScore, len(r.settings)),
	}
	for k, s := range r.settings {
		candidates := unionIDs(matched, s.Layers)
		var hits []ranker.Hit
		if len(candidates) > 0 {
			query := q.Terms.Project(s.LayerSet())
			fields := s.Fields(r.ranker.Fields)
			docs := make([]termvec.Vector, len(candidates))
			for i, id := range candidates {
				docs[i] = vectors[id].Project(fields)
			}
			scores := r.ranker.Rank(query, docs, r.stats)
			hits = ranker.Sort(candidates, scores)
		}
		score := scoring.Evaluate(ranker.DocIDs(hits), relevances, r.opts.Cutoff)
		if len(hits) > r.opts.Cutoff {
			hits = hits[:r.opts.Cutoff]
		}
		res.Settings[k] = SettingScore{Setting: s, Score: score, Hits: hits}
		r.metrics.RankingsTotal.Inc()
	}
	return res, nil
}

// unionIDs merges the matched IDs of layers into one ascending list.
func unionIDs(matched map[string][]string, layers []string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, l := range layers {
		for _, id := range matched[l] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func countRelevant(relevances map[string]float64) int {
	n := 0
	for _, rel := range relevances {
		if rel > 0 {
			n++
		}
	}
	return n
}

// aggregate averages per setting in query order and runs the significance
// tests. It runs after every query task has finished.
func (r *Runner) aggregate(queries []corpus.Query, results []*QueryResult, failures []error) *Report {
	report := &Report{
		Measures:    r.opts.Measures,
		SortMeasure: r.opts.SortMeasure,
		Baseline:    r.baseline,
		NumQueries:  len(queries),
	}
	for i, res := range results {
		if res != nil {
			report.Queries = append(report.Queries, *res)
			continue
		}
		msg := "unknown failure"
		if failures[i] != nil {
			msg = failures[i].Error()
		}
		report.Failures = append(report.Failures, QueryFailure{QueryID: queries[i].ID, Error: msg})
	}

	baselinePos := slices.IndexFunc(r.settings, func(s setting.Setting) bool { return s.Index == r.baseline.Index })
	baselineValues := r.perQueryValues(report.Queries, baselinePos)

	for k, s := range r.settings {
		e := scoring.NewEvaluator(r.opts.Cutoff)
		for _, qr := range report.Queries {
			e.AddScore(qr.Settings[k].Score)
		}
		result := SettingResult{
			Setting: s,
			Score:   e.Get(),
			PValues: make(map[scoring.Measure]float64, len(r.opts.Measures)),
		}
		values := r.perQueryValues(report.Queries, k)
		for j, m := range r.opts.Measures {
			if k == baselinePos {
				result.PValues[m] = math.NaN()
				continue
			}
			result.PValues[m] = r.tester.Test(baselineValues[j], values[j])
		}
		report.Settings = append(report.Settings, result)
	}

	slices.SortStableFunc(report.Settings, func(a, b SettingResult) int {
		if c := scoring.Compare(b.Score, a.Score, r.opts.SortMeasure); c != 0 {
			return c
		}
		return strings.Compare(a.Setting.Label, b.Setting.Label)
	})
	return report
}

// perQueryValues returns, per measure, the values of setting position k
// across queries.
func (r *Runner) perQueryValues(queries []QueryResult, k int) [][]float64 {
	out := make([][]float64, len(r.opts.Measures))
	for j, m := range r.opts.Measures {
		vals := make([]float64, len(queries))
		for i, qr := range queries {
			vals[i] = qr.Settings[k].Score.Get(m)
		}
		out[j] = vals
	}
	return out
}
