package significance

import (
	"math"
	"math/rand/v2"
)

// tolerance absorbs rounding when a permuted statistic equals the observed
// one.
const tolerance = 1e-12

// ApproximateRandomization is a paired permutation test. Each iteration
// swaps every pair with probability 0.5 and counts how often the absolute
// mean difference reaches the observed one. The result is
// (count+1)/(Iterations+1).
//
// Iteration i draws from a PCG source seeded with (Seed, i), so results do
// not depend on how iterations are scheduled.
type ApproximateRandomization struct {
	Iterations int
	Seed       uint64
}

func (ApproximateRandomization) Name() string { return "ar" }

func (r ApproximateRandomization) Test(a, b []float64) float64 {
	diffs, ok := differences(a, b)
	if !ok || len(diffs) == 0 || r.Iterations <= 0 {
		return math.NaN()
	}

	// mean(b')-mean(a') only flips the sign of each swapped difference.
	m := float64(len(diffs))
	observed := 0.0
	for _, d := range diffs {
		observed += d
	}
	observed = math.Abs(observed) / m

	count := 0
	for i := 0; i < r.Iterations; i++ {
		rng := rand.New(rand.NewPCG(r.Seed, uint64(i)))
		sum := 0.0
		for _, d := range diffs {
			if rng.IntN(2) == 1 {
				sum -= d
			} else {
				sum += d
			}
		}
		if math.Abs(sum)/m+tolerance >= observed {
			count++
		}
	}
	return float64(count+1) / float64(r.Iterations+1)
}
