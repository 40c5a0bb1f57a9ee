package termvec

import "slices"

type termKey struct {
	layer string
	value string
}

// Builder accumulates terms and produces an immutable Vector. Adding a key
// twice sums frequency and weight. A Builder is not safe for concurrent use.
type Builder struct {
	terms []Term
	index map[termKey]int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[termKey]int)}
}

// Add merges t into the builder.
func (b *Builder) Add(t Term) *Builder {
	if b.index == nil {
		b.index = make(map[termKey]int)
	}
	k := termKey{t.Layer, t.Value}
	if i, ok := b.index[k]; ok {
		b.terms[i].Frequency += t.Frequency
		b.terms[i].Weight += t.Weight
		return b
	}
	b.index[k] = len(b.terms)
	b.terms = append(b.terms, t)
	return b
}

// AddTerm is shorthand for Add(Term{...}).
func (b *Builder) AddTerm(layer, value string, frequency int, weight float64) *Builder {
	return b.Add(Term{Layer: layer, Value: value, Frequency: frequency, Weight: weight})
}

// Build returns the sorted vector. The builder may keep being used.
func (b *Builder) Build() Vector {
	if len(b.terms) == 0 {
		return Vector{}
	}
	out := slices.Clone(b.terms)
	slices.SortFunc(out, Compare)
	return Vector{terms: out}
}

// Of builds a vector from terms given in any order.
func Of(terms ...Term) Vector {
	b := NewBuilder()
	for _, t := range terms {
		b.Add(t)
	}
	return b.Build()
}
