package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
)

// Simple is the single-section ranker: tf = sqrt(doc weight),
// idf = ln(N/(df+1)) + 1, and a semantic weight budget split evenly across
// the non-textual layers present in the query.
type Simple struct {
	textualLayer   string
	semanticWeight float64
}

// NewSimple creates a Simple ranker.
func NewSimple(textualLayer string, semanticWeight float64) *Simple {
	return &Simple{
		textualLayer:   textualLayer,
		semanticWeight: semanticWeight,
	}
}

// Fields returns the layer itself; Simple has no sections.
func (r *Simple) Fields(layer string) []string {
	return []string{layer}
}

func (r *Simple) layerWeights(query termvec.Vector) map[string]float64 {
	layers := query.Layers()
	semantic := 0
	for _, l := range layers {
		if l != r.textualLayer {
			semantic++
		}
	}
	weights := make(map[string]float64, len(layers))
	for _, l := range layers {
		switch {
		case l == r.textualLayer && semantic > 0:
			weights[l] = 1 - r.semanticWeight
		case l == r.textualLayer:
			weights[l] = 1
		default:
			weights[l] = r.semanticWeight / float64(semantic)
		}
	}
	return weights
}

// Rank implements Ranker.
func (r *Simple) Rank(query termvec.Vector, docs []termvec.Vector, stats Statistics) []float64 {
	scores := make([]float64, len(docs))
	if query.IsEmpty() || len(docs) == 0 {
		return scores
	}
	totalDocs := stats.NumDocuments()
	if totalDocs <= 0 {
		return scores
	}
	weights := r.layerWeights(query)
	for i := 0; i < query.Len(); i++ {
		qt := query.At(i)
		layerWeight := weights[qt.Layer]
		if layerWeight == 0 || qt.Weight == 0 {
			continue
		}
		df := stats.DocumentFrequency(qt.Layer, qt.Value)
		idf := math.Log(float64(totalDocs)/float64(df+1)) + 1
		base := idf * idf * qt.Weight * layerWeight
		for d, doc := range docs {
			dt, ok := doc.Get(qt.Layer, qt.Value)
			if !ok || dt.Weight <= 0 {
				continue
			}
			scores[d] += math.Sqrt(dt.Weight) * base
		}
	}
	return scores
}
