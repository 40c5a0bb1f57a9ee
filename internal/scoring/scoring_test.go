package scoring

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

func TestEvaluate_ExampleRanking(t *testing.T) {
	s := Evaluate([]string{"x", "a", "b", "c"}, Relevant("a", "c", "d"), 10)

	assert.Equal(t, 1, s.NumRankings())
	assert.Equal(t, 0.5, s.MRR())
	assert.Equal(t, 0.0, s.Precision(1))
	assert.Equal(t, 0.5, s.Precision(2))
	assert.Equal(t, 0.5, s.Precision(4))
	assert.InDelta(t, 2.0/10, s.Precision(10), 1e-12, "positions past the ranking keep the last count")

	// relevant at 2 and 4: AP = (1/2 + 2/4) / 3
	assert.InDelta(t, (0.5+0.5)/3, s.MAP(), 1e-12)
	assert.InDelta(t, 0.5/3, s.MAPAt(2), 1e-12)

	dcg := math.Ln2/math.Log(2) + math.Ln2/math.Log(4)
	idcg := 1 + math.Ln2/math.Log(2) + math.Ln2/math.Log(3)
	assert.InDelta(t, dcg/idcg, s.NDCG(), 1e-12)
	assert.InDelta(t, dcg/idcg, s.NDCGAt(10), 1e-12)
	assert.Equal(t, 0.0, s.NDCGAt(1))
}

func TestEvaluate_PerfectRanking(t *testing.T) {
	s := Evaluate([]string{"a", "b", "c", "x", "y"}, Relevant("a", "b", "c"), 10)
	for k := 1; k <= 3; k++ {
		assert.Equal(t, 1.0, s.Precision(k), "p@%d", k)
		assert.Equal(t, 1.0, s.NDCGAt(k), "ndcg@%d", k)
		assert.Equal(t, 1.0, s.AltNDCGAt(k), "altndcg@%d", k)
	}
	assert.Equal(t, 1.0, s.NDCG())
	assert.Equal(t, 1.0, s.NDCGAt(10))
	assert.Equal(t, 1.0, s.MAP())
	assert.Equal(t, 1.0, s.MRR())
	assert.InDelta(t, 0.6, s.Precision(5), 1e-12)
}

func TestEvaluate_Graded(t *testing.T) {
	rels := map[string]float64{"a": 3, "b": 1}

	ideal := Evaluate([]string{"a", "b"}, rels, 5)
	assert.Equal(t, 1.0, ideal.NDCG())
	assert.Equal(t, 1.0, ideal.AltNDCGAt(5))

	swapped := Evaluate([]string{"b", "x", "a"}, rels, 5)
	want := (1 + 3*math.Ln2/math.Log(3)) / (3 + 1)
	assert.InDelta(t, want, swapped.NDCG(), 1e-12)
	assert.Less(t, swapped.NDCG(), 1.0)
	altWant := (1*altDiscount(1) + 7*altDiscount(3)) / (7*altDiscount(1) + 1*altDiscount(2))
	assert.InDelta(t, altWant, swapped.AltNDCGAt(3), 1e-12)
	assert.Less(t, swapped.AltNDCGAt(3), 1.0)
}

func TestEvaluate_NoRelevantDocuments(t *testing.T) {
	s := Evaluate([]string{"a", "b"}, map[string]float64{"z": 0}, 10)
	assert.Equal(t, 0.0, s.MAP())
	assert.Equal(t, 0.0, s.NDCG())
	assert.Equal(t, 0.0, s.MRR())
	assert.Equal(t, 0.0, s.NDCGAt(5))
	assert.False(t, math.IsNaN(s.MAPAt(10)))

	agg := Average(s, Evaluate([]string{"a"}, Relevant("a"), 10))
	assert.Equal(t, 0.5, agg.MAP())
	assert.Equal(t, 0.5, agg.NDCG())
}

func TestEvaluate_EmptyRanking(t *testing.T) {
	s := Evaluate(nil, Relevant("a"), 3)
	assert.Equal(t, 0.0, s.Precision(3))
	assert.Equal(t, 0.0, s.NDCG())
	assert.Equal(t, 0.0, s.MRR())
}

func TestEvaluate_DuplicateIDsCountOnce(t *testing.T) {
	s := Evaluate([]string{"a", "a"}, Relevant("a"), 2)
	assert.Equal(t, 0.5, s.Precision(2))
	assert.Equal(t, 1.0, s.MAP())
}

func TestRankingScore_OutOfRange(t *testing.T) {
	s := Evaluate([]string{"a"}, Relevant("a"), 5)
	assert.True(t, math.IsNaN(s.Precision(0)))
	assert.True(t, math.IsNaN(s.Precision(6)))
	assert.True(t, math.IsNaN(s.Get(NDCGAt(20))))

	empty := NewEvaluator(5).Get()
	assert.Equal(t, 0, empty.NumRankings())
	assert.True(t, math.IsNaN(empty.MRR()))
	assert.True(t, math.IsNaN(empty.Precision(1)))
}

func TestAverage_EqualsDirectAccumulation(t *testing.T) {
	cases := []struct {
		ranking []string
		rels    map[string]float64
	}{
		{[]string{"x", "a", "b", "c"}, Relevant("a", "c", "d")},
		{[]string{"d", "e"}, map[string]float64{"e": 2, "f": 1}},
		{[]string{"q"}, Relevant()},
		{nil, Relevant("z")},
	}

	direct := NewEvaluator(10)
	var singles []RankingScore
	for _, c := range cases {
		direct.Add(c.ranking, c.rels)
		singles = append(singles, Evaluate(c.ranking, c.rels, 10))
	}
	want := direct.Get()
	got := Average(singles...)

	require.Equal(t, want.NumRankings(), got.NumRankings())
	assert.Equal(t, want, got)

	reversed := make([]RankingScore, len(singles))
	for i, s := range singles {
		reversed[len(singles)-1-i] = s
	}
	rev := Average(reversed...)
	for _, m := range []Measure{PrecisionAt(3), MRR, NDCG, MAP, NDCGAt(10), AltNDCGAt(5)} {
		assert.InDelta(t, want.Get(m), rev.Get(m), 1e-12, m.String())
	}
}

func TestAverage_ShrinksToSmallestCutoff(t *testing.T) {
	a := Evaluate([]string{"a"}, Relevant("a"), 10)
	b := Evaluate([]string{"a"}, Relevant("a"), 5)
	avg := Average(a, b)
	assert.Equal(t, 5, avg.MaxN())
	assert.Equal(t, 2, avg.NumRankings())
	assert.True(t, math.IsNaN(avg.Precision(6)))
	assert.Equal(t, 1.0, avg.Precision(1))
}

func TestAverage_SkipsEmptyScores(t *testing.T) {
	a := Evaluate([]string{"a"}, Relevant("a"), 5)
	avg := Average(a, NewEvaluator(5).Get())
	assert.Equal(t, 1, avg.NumRankings())
	assert.Equal(t, 1.0, avg.MRR())

	none := Average()
	assert.True(t, math.IsNaN(none.MAP()))
}

func TestMerge(t *testing.T) {
	a := NewEvaluator(10).Add([]string{"a"}, Relevant("a"))
	b := NewEvaluator(3).Add([]string{"x", "a"}, Relevant("a"))
	m := Merge(a, b).Get()

	assert.Equal(t, 2, m.NumRankings())
	assert.Equal(t, 3, m.MaxN())
	assert.Equal(t, 0.75, m.MRR())
	assert.Equal(t, 1, a.Get().NumRankings(), "inputs are not modified")
	assert.Equal(t, 10, a.Get().MaxN())
}

func TestEvaluator_ConcurrentUpdates(t *testing.T) {
	shared := NewEvaluator(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				shared.Add([]string{"a", "b"}, Relevant("b"))
			} else {
				shared.AddScore(Evaluate([]string{"a", "b"}, Relevant("b"), 10))
			}
		}(i)
	}
	wg.Wait()
	s := shared.Get()
	assert.Equal(t, 50, s.NumRankings())
	assert.Equal(t, 0.5, s.MRR())
}

func TestEvaluator_MemoisedGetInvalidated(t *testing.T) {
	e := NewEvaluator(5).Add([]string{"a"}, Relevant("a"))
	first := e.Get()
	assert.Equal(t, 1.0, first.MRR())
	e.Add([]string{"x"}, Relevant("a"))
	assert.Equal(t, 0.5, e.Get().MRR())
	assert.Equal(t, 1.0, first.MRR(), "snapshots are immutable")
}

func TestCompare(t *testing.T) {
	good := Evaluate([]string{"a"}, Relevant("a"), 5)
	bad := Evaluate([]string{"x"}, Relevant("a"), 5)
	empty := NewEvaluator(5).Get()
	assert.Equal(t, 1, Compare(good, bad, MRR))
	assert.Equal(t, -1, Compare(bad, good, PrecisionAt(1)))
	assert.Equal(t, 0, Compare(good, good, NDCG))
	assert.Equal(t, -1, Compare(empty, bad, MRR), "NaN sorts lowest")
}

func TestParseMeasure(t *testing.T) {
	valid := map[string]Measure{
		"p@5":        PrecisionAt(5),
		"P@10":       PrecisionAt(10),
		"mrr":        MRR,
		"ndcg":       NDCG,
		"ndcg@10":    NDCGAt(10),
		"altndcg@10": AltNDCGAt(10),
		"map":        MAP,
		"map@3":      MAPAt(3),
	}
	for in, want := range valid {
		got, err := ParseMeasure(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	assert.Equal(t, "ndcg@10", NDCGAt(10).String())
	assert.Equal(t, "mrr", MRR.String())

	for _, in := range []string{"", "recall@5", "p", "mrr@5", "altndcg", "ndcg@0", "map@x"} {
		_, err := ParseMeasure(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidMeasure, in)
	}
}

func TestRankingScore_JSON(t *testing.T) {
	data, err := json.Marshal(NewEvaluator(2).Get())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mrr":null`)

	data, err = json.Marshal(map[Measure]float64{NDCGAt(10): 0.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ndcg@10":0.5}`, string(data))
}
