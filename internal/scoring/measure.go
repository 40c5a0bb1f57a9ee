package scoring

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// Kind identifies a ranking-quality metric.
type Kind int

const (
	KindPrecision Kind = iota
	KindMRR
	KindNDCG
	KindAltNDCG
	KindMAP
)

var kindNames = map[Kind]string{
	KindPrecision: "p",
	KindMRR:       "mrr",
	KindNDCG:      "ndcg",
	KindAltNDCG:   "altndcg",
	KindMAP:       "map",
}

// Measure is a metric, optionally cut off at rank N. N == 0 means the whole
// ranking and is only valid for MRR, NDCG and MAP.
type Measure struct {
	Kind Kind
	N    int
}

var (
	MRR  = Measure{Kind: KindMRR}
	NDCG = Measure{Kind: KindNDCG}
	MAP  = Measure{Kind: KindMAP}
)

func PrecisionAt(n int) Measure { return Measure{Kind: KindPrecision, N: n} }
func NDCGAt(n int) Measure      { return Measure{Kind: KindNDCG, N: n} }
func AltNDCGAt(n int) Measure   { return Measure{Kind: KindAltNDCG, N: n} }
func MAPAt(n int) Measure       { return Measure{Kind: KindMAP, N: n} }

func (m Measure) String() string {
	name := kindNames[m.Kind]
	if m.N > 0 {
		return name + "@" + strconv.Itoa(m.N)
	}
	return name
}

// MarshalText lets measures be used as JSON object keys.
func (m Measure) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Measure) UnmarshalText(text []byte) error {
	parsed, err := ParseMeasure(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMeasure parses names such as "p@5", "mrr", "ndcg", "ndcg@10",
// "altndcg@10", "map" and "map@10".
func ParseMeasure(s string) (Measure, error) {
	name, cutoff, hasCutoff := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "@")
	var m Measure
	switch name {
	case "p", "prec", "precision":
		m.Kind = KindPrecision
	case "mrr":
		m.Kind = KindMRR
	case "ndcg":
		m.Kind = KindNDCG
	case "altndcg", "ndcg2":
		m.Kind = KindAltNDCG
	case "map":
		m.Kind = KindMAP
	default:
		return Measure{}, apperrors.Newf(apperrors.ErrInvalidMeasure, "unknown measure %q", s)
	}
	if hasCutoff {
		n, err := strconv.Atoi(cutoff)
		if err != nil || n <= 0 {
			return Measure{}, apperrors.Newf(apperrors.ErrInvalidMeasure, "bad cutoff in %q", s)
		}
		m.N = n
	}
	switch {
	case m.Kind == KindMRR && m.N > 0:
		return Measure{}, apperrors.Newf(apperrors.ErrInvalidMeasure, "%q: mrr takes no cutoff", s)
	case (m.Kind == KindPrecision || m.Kind == KindAltNDCG) && m.N == 0:
		return Measure{}, apperrors.Newf(apperrors.ErrInvalidMeasure, "%q: cutoff required", s)
	}
	return m, nil
}

// ParseMeasures parses every name, failing on the first invalid one.
func ParseMeasures(names []string) ([]Measure, error) {
	measures := make([]Measure, 0, len(names))
	for _, name := range names {
		m, err := ParseMeasure(name)
		if err != nil {
			return nil, fmt.Errorf("parsing measures: %w", err)
		}
		measures = append(measures, m)
	}
	return measures, nil
}
