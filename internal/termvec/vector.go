package termvec

import (
	"encoding/json"
	"iter"
	"slices"
	"sort"
	"strings"
)

// LayerSet is a set of layer names used to project vectors.
type LayerSet map[string]struct{}

// NewLayerSet builds a LayerSet from the given names.
func NewLayerSet(layers ...string) LayerSet {
	s := make(LayerSet, len(layers))
	for _, l := range layers {
		s[l] = struct{}{}
	}
	return s
}

// Has reports whether layer is in the set.
func (s LayerSet) Has(layer string) bool {
	_, ok := s[layer]
	return ok
}

// Vector is an immutable sparse vector of Terms, strictly sorted by
// (layer, value). The zero value is the empty vector.
type Vector struct {
	terms []Term
}

// Len returns the number of terms.
func (v Vector) Len() int { return len(v.terms) }

// IsEmpty reports whether the vector has no terms.
func (v Vector) IsEmpty() bool { return len(v.terms) == 0 }

// At returns the i-th term in (layer, value) order.
func (v Vector) At(i int) Term { return v.terms[i] }

// Slice returns a copy of all terms in order.
func (v Vector) Slice() []Term { return slices.Clone(v.terms) }

// All iterates over the terms in (layer, value) order.
func (v Vector) All() iter.Seq[Term] {
	return func(yield func(Term) bool) {
		for _, t := range v.terms {
			if !yield(t) {
				return
			}
		}
	}
}

// Get looks up the term with the given key.
func (v Vector) Get(layer, value string) (Term, bool) {
	i, found := slices.BinarySearchFunc(v.terms, Term{Layer: layer, Value: value}, Compare)
	if !found {
		return Term{}, false
	}
	return v.terms[i], true
}

// Terms returns the terms of one layer using a binary-searched range.
func (v Vector) Terms(layer string) []Term {
	lo, hi := v.layerRange(layer)
	if lo == hi {
		return nil
	}
	return slices.Clone(v.terms[lo:hi])
}

func (v Vector) layerRange(layer string) (int, int) {
	lo := sort.Search(len(v.terms), func(i int) bool { return v.terms[i].Layer >= layer })
	hi := lo + sort.Search(len(v.terms)-lo, func(i int) bool { return v.terms[lo+i].Layer > layer })
	return lo, hi
}

// Layers returns the distinct layers present, in sorted order.
func (v Vector) Layers() []string {
	var layers []string
	for _, t := range v.terms {
		if n := len(layers); n == 0 || layers[n-1] != t.Layer {
			layers = append(layers, t.Layer)
		}
	}
	return layers
}

// HasLayer reports whether any term belongs to layer.
func (v Vector) HasLayer(layer string) bool {
	lo, hi := v.layerRange(layer)
	return lo < hi
}

// Scale multiplies every weight by factor. Frequencies are unchanged.
func (v Vector) Scale(factor float64) Vector {
	if factor == 1 || len(v.terms) == 0 {
		return v
	}
	out := make([]Term, len(v.terms))
	for i, t := range v.terms {
		t.Weight *= factor
		out[i] = t
	}
	return Vector{terms: out}
}

// Project keeps only the terms whose layer is in layers. The receiver is
// returned as-is when no term would be removed.
func (v Vector) Project(layers LayerSet) Vector {
	drop := false
	for _, t := range v.terms {
		if !layers.Has(t.Layer) {
			drop = true
			break
		}
	}
	if !drop {
		return v
	}
	out := make([]Term, 0, len(v.terms))
	for _, t := range v.terms {
		if layers.Has(t.Layer) {
			out = append(out, t)
		}
	}
	return Vector{terms: out}
}

// Add merges two vectors, summing frequency and weight of shared keys.
func (v Vector) Add(o Vector) Vector {
	if len(o.terms) == 0 {
		return v
	}
	if len(v.terms) == 0 {
		return o
	}
	out := make([]Term, 0, len(v.terms)+len(o.terms))
	i, j := 0, 0
	for i < len(v.terms) && j < len(o.terms) {
		a, b := v.terms[i], o.terms[j]
		switch c := Compare(a, b); {
		case c < 0:
			out = append(out, a)
			i++
		case c > 0:
			out = append(out, b)
			j++
		default:
			a.Frequency += b.Frequency
			a.Weight += b.Weight
			out = append(out, a)
			i++
			j++
		}
	}
	out = append(out, v.terms[i:]...)
	out = append(out, o.terms[j:]...)
	return Vector{terms: out}
}

// Product intersects two vectors. Matching terms keep the receiver's
// frequency and carry the product of both weights.
func (v Vector) Product(o Vector) Vector {
	var out []Term
	i, j := 0, 0
	for i < len(v.terms) && j < len(o.terms) {
		a, b := v.terms[i], o.terms[j]
		switch c := Compare(a, b); {
		case c < 0:
			i++
		case c > 0:
			j++
		default:
			a.Weight *= b.Weight
			out = append(out, a)
			i++
			j++
		}
	}
	return Vector{terms: out}
}

// Equal reports whether both vectors hold the same terms with the same
// frequencies and weights.
func (v Vector) Equal(o Vector) bool {
	return slices.Equal(v.terms, o.terms)
}

func (v Vector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, t := range v.terms {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// MarshalJSON encodes the vector as an array of terms.
func (v Vector) MarshalJSON() ([]byte, error) {
	if v.terms == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.terms)
}

// UnmarshalJSON decodes an array of terms in any order; duplicate keys are
// merged.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var terms []Term
	if err := json.Unmarshal(data, &terms); err != nil {
		return err
	}
	*v = Of(terms...)
	return nil
}
