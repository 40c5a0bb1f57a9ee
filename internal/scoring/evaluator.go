package scoring

import (
	"math"
	"sort"
	"sync"
)

// Evaluator accumulates metric sums over many rankings. All methods are safe
// for concurrent use; updates are serialised by a single mutex.
type Evaluator struct {
	mu            sync.Mutex
	maxN          int
	numRankings   int
	precisionSums []float64
	ndcgSums      []float64
	altNDCGSums   []float64
	mapSums       []float64
	mrrSum        float64
	ndcgSum       float64
	mapSum        float64
	score         *RankingScore
}

// NewEvaluator creates an empty accumulator with cutoff metrics up to maxN.
func NewEvaluator(maxN int) *Evaluator {
	if maxN < 0 {
		maxN = 0
	}
	return &Evaluator{
		maxN:          maxN,
		precisionSums: make([]float64, maxN),
		ndcgSums:      make([]float64, maxN),
		altNDCGSums:   make([]float64, maxN),
		mapSums:       make([]float64, maxN),
	}
}

// Relevant builds an ungraded relevance map (gain 1) for ids.
func Relevant(ids ...string) map[string]float64 {
	rels := make(map[string]float64, len(ids))
	for _, id := range ids {
		rels[id] = 1
	}
	return rels
}

// Evaluate scores a single ranking.
func Evaluate(ranking []string, relevances map[string]float64, maxN int) RankingScore {
	return NewEvaluator(maxN).Add(ranking, relevances).Get()
}

// Add scores one ranking against graded relevances. Documents with a
// relevance above zero are relevant; the value is their NDCG gain.
func (e *Evaluator) Add(ranking []string, relevances map[string]float64) *Evaluator {
	e.mu.Lock()
	maxN := e.maxN
	e.mu.Unlock()

	c := computeContribution(ranking, relevances, maxN)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.shrink(maxN)
	e.numRankings++
	for i := 0; i < e.maxN; i++ {
		e.precisionSums[i] += c.precisions[i]
		e.ndcgSums[i] += c.ndcgs[i]
		e.altNDCGSums[i] += c.altNDCGs[i]
		e.mapSums[i] += c.maps[i]
	}
	e.mrrSum += c.mrr
	e.ndcgSum += c.ndcg
	e.mapSum += c.mapAll
	e.score = nil
	return e
}

// AddScore merges an averaged score, weighted by its number of rankings.
// Scores without rankings are ignored.
func (e *Evaluator) AddScore(s RankingScore) *Evaluator {
	if s.numRankings == 0 {
		return e
	}
	w := float64(s.numRankings)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shrink(s.maxN)
	e.numRankings += s.numRankings
	for i := 0; i < e.maxN; i++ {
		e.precisionSums[i] += s.precisions[i] * w
		e.ndcgSums[i] += s.ndcgs[i] * w
		e.altNDCGSums[i] += s.altNDCGs[i] * w
		e.mapSums[i] += s.maps[i] * w
	}
	e.mrrSum += s.mrr * w
	e.ndcgSum += s.ndcg * w
	e.mapSum += s.mapAll * w
	e.score = nil
	return e
}

// AddEvaluator merges the sums of o into e.
func (e *Evaluator) AddEvaluator(o *Evaluator) *Evaluator {
	o.mu.Lock()
	snapshot := Evaluator{
		maxN:          o.maxN,
		numRankings:   o.numRankings,
		precisionSums: append([]float64(nil), o.precisionSums...),
		ndcgSums:      append([]float64(nil), o.ndcgSums...),
		altNDCGSums:   append([]float64(nil), o.altNDCGSums...),
		mapSums:       append([]float64(nil), o.mapSums...),
		mrrSum:        o.mrrSum,
		ndcgSum:       o.ndcgSum,
		mapSum:        o.mapSum,
	}
	o.mu.Unlock()

	if snapshot.numRankings == 0 {
		return e
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shrink(snapshot.maxN)
	e.numRankings += snapshot.numRankings
	for i := 0; i < e.maxN; i++ {
		e.precisionSums[i] += snapshot.precisionSums[i]
		e.ndcgSums[i] += snapshot.ndcgSums[i]
		e.altNDCGSums[i] += snapshot.altNDCGSums[i]
		e.mapSums[i] += snapshot.mapSums[i]
	}
	e.mrrSum += snapshot.mrrSum
	e.ndcgSum += snapshot.ndcgSum
	e.mapSum += snapshot.mapSum
	e.score = nil
	return e
}

// shrink lowers maxN; no metric exists beyond the smaller cutoff.
// Callers hold e.mu.
func (e *Evaluator) shrink(maxN int) {
	if maxN >= e.maxN {
		return
	}
	e.maxN = maxN
	e.precisionSums = e.precisionSums[:maxN]
	e.ndcgSums = e.ndcgSums[:maxN]
	e.altNDCGSums = e.altNDCGSums[:maxN]
	e.mapSums = e.mapSums[:maxN]
	e.score = nil
}

// Get returns the averaged score. The result is memoised until the next
// update.
func (e *Evaluator) Get() RankingScore {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.score != nil {
		return *e.score
	}
	s := RankingScore{
		numRankings: e.numRankings,
		maxN:        e.maxN,
	}
	if e.numRankings > 0 {
		n := float64(e.numRankings)
		s.precisions = divide(e.precisionSums, n)
		s.ndcgs = divide(e.ndcgSums, n)
		s.altNDCGs = divide(e.altNDCGSums, n)
		s.maps = divide(e.mapSums, n)
		s.mrr = e.mrrSum / n
		s.ndcg = e.ndcgSum / n
		s.mapAll = e.mapSum / n
	}
	e.score = &s
	return s
}

func divide(sums []float64, n float64) []float64 {
	out := make([]float64, len(sums))
	for i, v := range sums {
		out[i] = v / n
	}
	return out
}

// Merge returns a new Evaluator holding the sums of a and b. Neither input
// is modified.
func Merge(a, b *Evaluator) *Evaluator {
	a.mu.Lock()
	maxN := a.maxN
	a.mu.Unlock()
	b.mu.Lock()
	maxN = min(maxN, b.maxN)
	b.mu.Unlock()
	return NewEvaluator(maxN).AddEvaluator(a).AddEvaluator(b)
}

// Average merges scores, weighting each by its number of rankings. The
// result is cut off at the smallest MaxN among the inputs.
func Average(scores ...RankingScore) RankingScore {
	if len(scores) == 0 {
		return NewEvaluator(0).Get()
	}
	maxN := scores[0].maxN
	for _, s := range scores[1:] {
		maxN = min(maxN, s.maxN)
	}
	e := NewEvaluator(maxN)
	for _, s := range scores {
		e.AddScore(s)
	}
	return e.Get()
}

type contribution struct {
	precisions []float64
	ndcgs      []float64
	altNDCGs   []float64
	maps       []float64
	mrr        float64
	ndcg       float64
	mapAll     float64
}

// discount is 1 at rank 1 and ln2/ln(n) afterwards.
func discount(n int) float64 {
	if n == 1 {
		return 1
	}
	return math.Ln2 / math.Log(float64(n))
}

// altDiscount is the conventional 1/log2(n+1).
func altDiscount(n int) float64 {
	return math.Ln2 / math.Log(float64(n+1))
}

func altGain(rel float64) float64 {
	return math.Exp2(rel) - 1
}

func computeContribution(ranking []string, relevances map[string]float64, maxN int) contribution {
	c := contribution{
		precisions: make([]float64, maxN),
		ndcgs:      make([]float64, maxN),
		altNDCGs:   make([]float64, maxN),
		maps:       make([]float64, maxN),
	}

	ideal := make([]float64, 0, len(relevances))
	for _, rel := range relevances {
		if rel > 0 {
			ideal = append(ideal, rel)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ideal)))
	numRelevant := len(ideal)

	// idcg[n] and altIDCG[n] hold the ideal gain over the first n ranks.
	limit := max(len(ranking), maxN)
	idcg := make([]float64, limit+1)
	altIDCG := make([]float64, limit+1)
	for n := 1; n <= limit; n++ {
		idcg[n], altIDCG[n] = idcg[n-1], altIDCG[n-1]
		if n <= numRelevant {
			idcg[n] += ideal[n-1] * discount(n)
			altIDCG[n] += altGain(ideal[n-1]) * altDiscount(n)
		}
	}

	seen := make(map[string]struct{}, len(ranking))
	hits := 0
	var dcg, altDCG, apSum float64
	for n := 1; n <= limit; n++ {
		if n <= len(ranking) {
			id := ranking[n-1]
			_, dup := seen[id]
			seen[id] = struct{}{}
			if rel := relevances[id]; rel > 0 && !dup {
				hits++
				dcg += rel * discount(n)
				altDCG += altGain(rel) * altDiscount(n)
				apSum += float64(hits) / float64(n)
				if hits == 1 {
					c.mrr = 1 / float64(n)
				}
			}
		}
		if n <= maxN {
			c.precisions[n-1] = float64(hits) / float64(n)
			if numRelevant > 0 {
				c.ndcgs[n-1] = dcg / idcg[n]
				c.altNDCGs[n-1] = altDCG / altIDCG[n]
				c.maps[n-1] = apSum / float64(numRelevant)
			}
		}
	}
	if numRelevant > 0 {
		full := 0.0
		for i, rel := range ideal {
			full += rel * discount(i+1)
		}
		c.ndcg = dcg / full
		c.mapAll = apSum / float64(numRelevant)
	}
	return c
}
