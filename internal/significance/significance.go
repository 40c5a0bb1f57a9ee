// Package significance runs paired two-sample hypothesis tests over
// per-query metric values.
package significance

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// Tester compares two paired samples and returns a p-value. Degenerate
// input yields NaN.
type Tester interface {
	Test(a, b []float64) float64
	Name() string
}

// New builds the tester selected by cfg.Test.
func New(cfg config.SignificanceConfig) (Tester, error) {
	switch cfg.Test {
	case "ttest":
		return TTest{}, nil
	case "ar":
		if cfg.Iterations <= 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "randomization needs positive iterations, got %d", cfg.Iterations)
		}
		return ApproximateRandomization{Iterations: cfg.Iterations, Seed: cfg.Seed}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "unknown significance test %q", cfg.Test)
	}
}

// FilterPairs drops every index where either sample is NaN. It returns
// nil slices when the lengths differ.
func FilterPairs(a, b []float64) ([]float64, []float64) {
	if len(a) != len(b) {
		return nil, nil
	}
	fa := make([]float64, 0, len(a))
	fb := make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		fa = append(fa, a[i])
		fb = append(fb, b[i])
	}
	return fa, fb
}

// differences returns b[i]-a[i] over the NaN-free pairs, or false when the
// samples cannot be paired.
func differences(a, b []float64) ([]float64, bool) {
	if len(a) != len(b) {
		return nil, false
	}
	fa, fb := FilterPairs(a, b)
	diffs := make([]float64, len(fa))
	for i := range fa {
		diffs[i] = fb[i] - fa[i]
	}
	return diffs, true
}
