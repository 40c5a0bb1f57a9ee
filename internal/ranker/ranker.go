// Package ranker scores candidate document vectors against a query vector.
// Scores are only meaningful relative to each other within a single call.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// Statistics exposes the corpus-wide counts needed for IDF. A field is a
// layer name, optionally prefixed by a section.
type Statistics interface {
	NumDocuments() int64
	DocumentFrequency(field, value string) int64
}

// Ranker produces one score per document, in the same order as docs.
type Ranker interface {
	Rank(query termvec.Vector, docs []termvec.Vector, stats Statistics) []float64
	// Fields returns the document fields consulted when scoring query
	// terms of the given layer.
	Fields(layer string) []string
}

// New builds the ranker selected by cfg.Type.
func New(cfg config.RankerConfig) (Ranker, error) {
	switch cfg.Type {
	case "tfidf":
		weights, err := ParseWeights(cfg.Weights)
		if err != nil {
			return nil, err
		}
		sections, err := ParseWeights(cfg.Sections)
		if err != nil {
			return nil, err
		}
		return NewTfIdf(weights, sections, cfg.Rescaled, cfg.Normalize), nil
	case "simple":
		if cfg.TextualLayer == "" {
			return nil, apperrors.New(apperrors.ErrInvalidConfig, "simple ranker needs a textual layer")
		}
		if cfg.SemanticWeight < 0 || cfg.SemanticWeight > 1 {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "semantic weight %g outside [0,1]", cfg.SemanticWeight)
		}
		return NewSimple(cfg.TextualLayer, cfg.SemanticWeight), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrUnknownRanker, "ranker type %q", cfg.Type)
	}
}

// computeIDF returns ln(N/df), or 0 when either count is not positive.
func computeIDF(totalDocs int64, docFreq int64) float64 {
	if totalDocs <= 0 || docFreq <= 0 {
		return 0
	}
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// computeTF returns 1 + ln(f) for a positive raw frequency.
func computeTF(frequency int) float64 {
	return 1 + math.Log(float64(frequency))
}
