package ranker

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// ParseWeights parses a "name:weight" list separated by commas or blanks,
// e.g. "textual:1, uri:0.25 type:0.25". Names may be empty, which is how an
// unprefixed section is written (":1"). An empty spec yields an empty map.
func ParseWeights(spec string) (map[string]float64, error) {
	weights := make(map[string]float64)
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	for _, field := range fields {
		idx := strings.LastIndexByte(field, ':')
		if idx < 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidWeightSpec, "%q: missing ':' in %q", spec, field)
		}
		name, raw := field[:idx], field[idx+1:]
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidWeightSpec, "%q: bad weight %q", spec, raw)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, apperrors.Newf(apperrors.ErrInvalidWeightSpec, "%q: weight for %q must be finite and non-negative", spec, name)
		}
		if _, dup := weights[name]; dup {
			return nil, apperrors.Newf(apperrors.ErrInvalidWeightSpec, "%q: %q listed twice", spec, name)
		}
		weights[name] = w
	}
	return weights, nil
}
