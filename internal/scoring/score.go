// Package scoring computes ranking-quality metrics (precision@k, MRR, NDCG,
// MAP) and accumulates them across rankings. Accumulation keeps sums, so
// partial results from different queries or goroutines merge by addition.
//
// Conventions: a ranking whose query has no relevant document contributes 0
// to every metric and still counts as a ranking. A score built from zero
// rankings reports NaN for every metric.
package scoring

import (
	"cmp"
	"encoding/json"
	"math"
)

// RankingScore is an immutable snapshot of metrics averaged over
// NumRankings rankings, with cutoff metrics available for 1..MaxN.
type RankingScore struct {
	numRankings int
	maxN        int
	precisions  []float64
	ndcgs       []float64
	altNDCGs    []float64
	maps        []float64
	mrr         float64
	ndcg        float64
	mapAll      float64
}

// NumRankings returns how many rankings were averaged.
func (s RankingScore) NumRankings() int { return s.numRankings }

// MaxN returns the largest cutoff available.
func (s RankingScore) MaxN() int { return s.maxN }

func (s RankingScore) at(values []float64, n int) float64 {
	if s.numRankings == 0 || n < 1 || n > s.maxN {
		return math.NaN()
	}
	return values[n-1]
}

func (s RankingScore) whole(v float64) float64 {
	if s.numRankings == 0 {
		return math.NaN()
	}
	return v
}

func (s RankingScore) Precision(n int) float64 { return s.at(s.precisions, n) }
func (s RankingScore) NDCGAt(n int) float64    { return s.at(s.ndcgs, n) }
func (s RankingScore) AltNDCGAt(n int) float64 { return s.at(s.altNDCGs, n) }
func (s RankingScore) MAPAt(n int) float64     { return s.at(s.maps, n) }
func (s RankingScore) MRR() float64            { return s.whole(s.mrr) }
func (s RankingScore) NDCG() float64           { return s.whole(s.ndcg) }
func (s RankingScore) MAP() float64            { return s.whole(s.mapAll) }

// Get returns the value of m, or NaN when m is not available.
func (s RankingScore) Get(m Measure) float64 {
	switch m.Kind {
	case KindPrecision:
		return s.Precision(m.N)
	case KindMRR:
		return s.MRR()
	case KindNDCG:
		if m.N == 0 {
			return s.NDCG()
		}
		return s.NDCGAt(m.N)
	case KindAltNDCG:
		return s.AltNDCGAt(m.N)
	case KindMAP:
		if m.N == 0 {
			return s.MAP()
		}
		return s.MAPAt(m.N)
	}
	return math.NaN()
}

// Values returns Get for each measure.
func (s RankingScore) Values(measures []Measure) []float64 {
	out := make([]float64, len(measures))
	for i, m := range measures {
		out[i] = s.Get(m)
	}
	return out
}

// Compare orders two scores by a single measure; NaN sorts lowest. Callers
// ordering collections must add their own tiebreak.
func Compare(a, b RankingScore, m Measure) int {
	return cmp.Compare(a.Get(m), b.Get(m))
}

// jsonFloat encodes NaN and infinities as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func jsonFloats(values []float64) []jsonFloat {
	out := make([]jsonFloat, len(values))
	for i, v := range values {
		out[i] = jsonFloat(v)
	}
	return out
}

func (s RankingScore) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		NumRankings int         `json:"num_rankings"`
		MaxN        int         `json:"max_n"`
		Precision   []jsonFloat `json:"precision"`
		NDCG        []jsonFloat `json:"ndcg"`
		AltNDCG     []jsonFloat `json:"alt_ndcg"`
		MAP         []jsonFloat `json:"map"`
		MRR         jsonFloat   `json:"mrr"`
		NDCGAll     jsonFloat   `json:"ndcg_all"`
		MAPAll      jsonFloat   `json:"map_all"`
	}{
		NumRankings: s.numRankings,
		MaxN:        s.maxN,
		Precision:   jsonFloats(s.precisions),
		NDCG:        jsonFloats(s.ndcgs),
		AltNDCG:     jsonFloats(s.altNDCGs),
		MAP:         jsonFloats(s.maps),
		MRR:         jsonFloat(s.MRR()),
		NDCGAll:     jsonFloat(s.NDCG()),
		MAPAll:      jsonFloat(s.MAP()),
	})
}
