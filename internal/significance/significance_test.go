package significance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

var sample = []float64{0.1, 0.4, 0.35, 0.8, 0.0, 0.55, 0.25, 0.9, 0.6, 0.45}

func shifted(base []float64, delta float64) []float64 {
	out := make([]float64, len(base))
	for i, v := range base {
		// vary the shift so the differences are not constant
		out[i] = v + delta + 0.01*float64(i%3)
	}
	return out
}

func testers() []Tester {
	return []Tester{TTest{}, ApproximateRandomization{Iterations: 2000, Seed: 7}}
}

func TestIdenticalSamples(t *testing.T) {
	for _, tester := range testers() {
		t.Run(tester.Name(), func(t *testing.T) {
			assert.Equal(t, 1.0, tester.Test(sample, sample))
		})
	}
}

func TestClearDifference(t *testing.T) {
	b := shifted(sample, 0.5)
	for _, tester := range testers() {
		t.Run(tester.Name(), func(t *testing.T) {
			p := tester.Test(sample, b)
			require.False(t, math.IsNaN(p))
			assert.Less(t, p, 0.01)
			assert.InDelta(t, p, tester.Test(b, sample), 1e-12, "two-sided")
		})
	}
}

func TestNaNPairsAreExcluded(t *testing.T) {
	b := shifted(sample, 0.5)
	withNaN := append(append([]float64(nil), sample...), math.NaN(), 0.3)
	bWithNaN := append(append([]float64(nil), b...), 0.2, math.NaN())

	for _, tester := range testers() {
		t.Run(tester.Name(), func(t *testing.T) {
			assert.Equal(t, tester.Test(sample, b), tester.Test(withNaN, bWithNaN))
		})
	}
}

func TestDegenerateInput(t *testing.T) {
	for _, tester := range testers() {
		t.Run(tester.Name(), func(t *testing.T) {
			assert.True(t, math.IsNaN(tester.Test([]float64{1, 2}, []float64{1})), "length mismatch")
			assert.True(t, math.IsNaN(tester.Test(nil, nil)), "empty")
			assert.True(t, math.IsNaN(tester.Test([]float64{math.NaN()}, []float64{1})), "all pairs filtered")
		})
	}

	assert.True(t, math.IsNaN(TTest{}.Test([]float64{1}, []float64{2})), "single pair")
	assert.True(t, math.IsNaN(TTest{}.Test([]float64{1, 2, 3}, []float64{2, 3, 4})), "constant non-zero difference")
}

func TestTTest_KnownValue(t *testing.T) {
	// diffs 1,2,3: mean 2, sd 1, t = 2*sqrt(3) with 2 degrees of freedom
	p := TTest{}.Test([]float64{0, 0, 0}, []float64{1, 2, 3})
	tStat := 2 * math.Sqrt(3)
	want := 1 - tStat/math.Sqrt(2+tStat*tStat)
	assert.InDelta(t, want, p, 1e-9)
}

func TestApproximateRandomization_Reproducible(t *testing.T) {
	b := []float64{0.3, 0.2, 0.5, 0.7, 0.1, 0.5, 0.4, 0.6, 0.8, 0.2}
	ar := ApproximateRandomization{Iterations: 500, Seed: 42}
	first := ar.Test(sample, b)
	assert.Equal(t, first, ar.Test(sample, b))
	assert.GreaterOrEqual(t, first, 1.0/501)
	assert.LessOrEqual(t, first, 1.0)
	assert.Greater(t, first, 0.05, "noisy differences are not significant")
}

func TestApproximateRandomization_Smoothing(t *testing.T) {
	// with a single pair every permutation reaches the observed statistic
	p := ApproximateRandomization{Iterations: 10, Seed: 1}.Test([]float64{0}, []float64{1})
	assert.Equal(t, 1.0, p)
}

func TestFilterPairs(t *testing.T) {
	a, b := FilterPairs([]float64{1, math.NaN(), 3}, []float64{4, 5, math.NaN()})
	assert.Equal(t, []float64{1}, a)
	assert.Equal(t, []float64{4}, b)

	a, b = FilterPairs([]float64{1}, nil)
	assert.Nil(t, a)
	assert.Nil(t, b)
}

func TestNew(t *testing.T) {
	tt, err := New(config.SignificanceConfig{Test: "ttest"})
	require.NoError(t, err)
	assert.Equal(t, "ttest", tt.Name())

	ar, err := New(config.SignificanceConfig{Test: "ar", Iterations: 10, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, ApproximateRandomization{Iterations: 10, Seed: 3}, ar)

	_, err = New(config.SignificanceConfig{Test: "ar"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	_, err = New(config.SignificanceConfig{Test: "wilcoxon"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func BenchmarkApproximateRandomization(b *testing.B) {
	x := shifted(sample, 0.1)
	ar := ApproximateRandomization{Iterations: 1000, Seed: 1}
	b.ReportAllocs()
	for b.Loop() {
		ar.Test(sample, x)
	}
}
