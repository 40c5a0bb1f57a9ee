package evaluation

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/setting"
)

// Report is the outcome of one run. Settings are sorted by SortMeasure,
// best first, ties broken by label. Queries keep the input order and hold
// only the queries that were evaluated.
type Report struct {
	RunID       string            `json:"run_id,omitempty"`
	Measures    []scoring.Measure `json:"measures"`
	SortMeasure scoring.Measure   `json:"sort_measure"`
	Baseline    setting.Setting   `json:"baseline"`
	Settings    []SettingResult   `json:"settings"`
	Queries     []QueryResult     `json:"queries"`
	Failures    []QueryFailure    `json:"failures"`
	NumQueries  int               `json:"num_queries"`
	Duration    time.Duration     `json:"duration"`
}

// SettingResult holds the averaged score of one setting and the p-value of
// each measure against the baseline. The baseline's own p-values are NaN.
type SettingResult struct {
	Setting setting.Setting             `json:"setting"`
	Score   scoring.RankingScore        `json:"score"`
	PValues map[scoring.Measure]float64 `json:"-"`
}

func (s SettingResult) PValue(m scoring.Measure) float64 {
	p, ok := s.PValues[m]
	if !ok {
		return math.NaN()
	}
	return p
}

// QueryResult holds the per-setting scores of one query. Settings are in
// enumeration order.
type QueryResult struct {
	QueryID       string         `json:"query_id"`
	NumCandidates int            `json:"num_candidates"`
	NumRelevant   int            `json:"num_relevant"`
	Settings      []SettingScore `json:"settings"`
}

// SettingScore is one query's ranking under one setting. Hits holds the top
// of the ranking, up to the cutoff.
type SettingScore struct {
	Setting setting.Setting      `json:"setting"`
	Score   scoring.RankingScore `json:"score"`
	Hits    []ranker.Hit         `json:"hits"`
}

// Ranked returns the settings of this query ordered by m, best first, ties
// broken by label.
func (q QueryResult) Ranked(m scoring.Measure) []SettingScore {
	out := slices.Clone(q.Settings)
	slices.SortStableFunc(out, func(a, b SettingScore) int {
		if c := scoring.Compare(b.Score, a.Score, m); c != 0 {
			return c
		}
		return strings.Compare(a.Setting.Label, b.Setting.Label)
	})
	return out
}

// Setting returns the score of the setting with the given label.
func (q QueryResult) Setting(label string) (SettingScore, bool) {
	for _, s := range q.Settings {
		if s.Setting.Label == label {
			return s, true
		}
	}
	return SettingScore{}, false
}

// QueryFailure records a query excluded from aggregation.
type QueryFailure struct {
	QueryID string `json:"query_id"`
	Error   string `json:"error"`
}

// Setting returns the aggregate result for a label.
func (r *Report) Setting(label string) (SettingResult, bool) {
	for _, s := range r.Settings {
		if s.Setting.Label == label {
			return s, true
		}
	}
	return SettingResult{}, false
}

// PerQuery returns, for the setting with the given label, one score per
// evaluated query in query order.
func (r *Report) PerQuery(label string) []scoring.RankingScore {
	var out []scoring.RankingScore
	for _, q := range r.Queries {
		if s, ok := q.Setting(label); ok {
			out = append(out, s.Score)
		}
	}
	return out
}
