package ranker

import (
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
)

type section struct {
	prefix string
	weight float64
}

// TfIdf is the multi-layer ranker. For every query term and section it adds
//
//	(1 + ln f_doc) · idf² · w_query · w_layer · w_section
//
// to each document containing the term in field section+layer, with
// idf = ln(N/df). Layers without a configured weight count as 1.
type TfIdf struct {
	layerWeights map[string]float64
	sections     []section
	rescaled     []string
	normalize    bool
}

// NewTfIdf creates the ranker. With no sections, documents are scored on the
// bare layer names. Layers listed in rescaled share a fixed total weight
// regardless of which of them occur in a query.
func NewTfIdf(layerWeights, sectionWeights map[string]float64, rescaled []string, normalize bool) *TfIdf {
	r := &TfIdf{
		layerWeights: make(map[string]float64, len(layerWeights)),
		normalize:    normalize,
	}
	for l, w := range layerWeights {
		r.layerWeights[l] = w
	}
	for p, w := range sectionWeights {
		r.sections = append(r.sections, section{prefix: p, weight: w})
	}
	if len(r.sections) == 0 {
		r.sections = []section{{prefix: "", weight: 1}}
	}
	sort.Slice(r.sections, func(i, j int) bool {
		return r.sections[i].prefix < r.sections[j].prefix
	})
	seen := make(map[string]struct{}, len(rescaled))
	for _, l := range rescaled {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		r.rescaled = append(r.rescaled, l)
	}
	sort.Strings(r.rescaled)
	return r
}

// Fields returns section+layer for every configured section.
func (r *TfIdf) Fields(layer string) []string {
	fields := make([]string, len(r.sections))
	for i, s := range r.sections {
		fields[i] = s.prefix + layer
	}
	return fields
}

func (r *TfIdf) weight(layer string) float64 {
	if w, ok := r.layerWeights[layer]; ok {
		return w
	}
	return 1
}

// effectiveWeights applies rescaling for the layers present in query.
func (r *TfIdf) effectiveWeights(query termvec.Vector) map[string]float64 {
	weights := make(map[string]float64)
	for _, l := range query.Layers() {
		weights[l] = r.weight(l)
	}
	if len(r.rescaled) == 0 {
		return weights
	}
	var sumConfigured, sumPresent float64
	for _, l := range r.rescaled {
		w := r.weight(l)
		sumConfigured += w
		if _, ok := weights[l]; ok {
			sumPresent += w
		}
	}
	if sumPresent > 0 && sumPresent != sumConfigured {
		factor := sumConfigured / sumPresent
		for _, l := range r.rescaled {
			if w, ok := weights[l]; ok {
				weights[l] = w * factor
			}
		}
	}
	return weights
}

// Rank implements Ranker.
func (r *TfIdf) Rank(query termvec.Vector, docs []termvec.Vector, stats Statistics) []float64 {
	scores := make([]float64, len(docs))
	if query.IsEmpty() || len(docs) == 0 {
		return scores
	}
	totalDocs := stats.NumDocuments()
	weights := r.effectiveWeights(query)
	var norms [][]float64
	if r.normalize {
		norms = r.computeNorms(docs, stats, totalDocs)
	}
	for i := 0; i < query.Len(); i++ {
		qt := query.At(i)
		layerWeight := weights[qt.Layer]
		if layerWeight == 0 || qt.Weight == 0 {
			continue
		}
		for s, sec := range r.sections {
			if sec.weight == 0 {
				continue
			}
			field := sec.prefix + qt.Layer
			idf := computeIDF(totalDocs, stats.DocumentFrequency(field, qt.Value))
			if idf == 0 {
				continue
			}
			base := idf * idf * qt.Weight * layerWeight * sec.weight
			for d, doc := range docs {
				dt, ok := doc.Get(field, qt.Value)
				if !ok || dt.Frequency <= 0 {
					continue
				}
				contribution := computeTF(dt.Frequency) * base
				if norms != nil {
					norm := norms[s][d]
					if norm == 0 {
						continue
					}
					contribution /= norm
				}
				scores[d] += contribution
			}
		}
	}
	return scores
}

// sectionOf returns the section owning field: the one with the longest
// matching prefix, or -1.
func (r *TfIdf) sectionOf(field string) int {
	best := -1
	for s, sec := range r.sections {
		if !strings.HasPrefix(field, sec.prefix) {
			continue
		}
		if best < 0 || len(sec.prefix) > len(r.sections[best].prefix) {
			best = s
		}
	}
	return best
}

// computeNorms returns, per section and document, the L2 norm of the tf·idf
// values of the document terms that belong to that section. Every term
// belongs to at most one section.
func (r *TfIdf) computeNorms(docs []termvec.Vector, stats Statistics, totalDocs int64) [][]float64 {
	sums := make([][]float64, len(r.sections))
	for s := range r.sections {
		sums[s] = make([]float64, len(docs))
	}
	for d, doc := range docs {
		for t := range doc.All() {
			if t.Frequency <= 0 {
				continue
			}
			s := r.sectionOf(t.Layer)
			if s < 0 {
				continue
			}
			v := computeTF(t.Frequency) * computeIDF(totalDocs, stats.DocumentFrequency(t.Layer, t.Value))
			sums[s][d] += v * v
		}
	}
	for s := range sums {
		for d, sum := range sums[s] {
			sums[s][d] = math.Sqrt(sum)
		}
	}
	return sums
}
