package significance

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTest is a two-sided paired Student's t-test.
type TTest struct{}

func (TTest) Name() string { return "ttest" }

// Test returns 1 when every difference is zero and NaN when fewer than two
// pairs remain or the differences have zero variance.
func (TTest) Test(a, b []float64) float64 {
	diffs, ok := differences(a, b)
	if !ok || len(diffs) < 2 {
		return math.NaN()
	}
	allZero := true
	for _, d := range diffs {
		if d != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return 1
	}

	mean, sd := stat.MeanStdDev(diffs, nil)
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	n := float64(len(diffs))
	t := mean / (sd / math.Sqrt(n))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}
	return math.Min(1, 2*dist.CDF(-math.Abs(t)))
}
