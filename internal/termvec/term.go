// Package termvec implements the sparse weighted term vectors that represent
// analysed documents and queries. A Vector is an immutable list of Terms kept
// strictly sorted by (layer, value) with no duplicate keys, so every algebraic
// operation is a linear merge over two sorted lists.
package termvec

import (
	"cmp"
	"fmt"
)

// Term is one weighted (layer, value) entry. Frequency and Weight do not take
// part in ordering or key identity.
type Term struct {
	Layer     string  `json:"layer"`
	Value     string  `json:"value"`
	Frequency int     `json:"frequency"`
	Weight    float64 `json:"weight"`
}

// Compare orders terms by layer, then value.
func Compare(a, b Term) int {
	if c := cmp.Compare(a.Layer, b.Layer); c != 0 {
		return c
	}
	return cmp.Compare(a.Value, b.Value)
}

// SameKey reports whether a and b share the same (layer, value) key.
func SameKey(a, b Term) bool {
	return a.Layer == b.Layer && a.Value == b.Value
}

func (t Term) String() string {
	return fmt.Sprintf("%s:%s(f=%d,w=%g)", t.Layer, t.Value, t.Frequency, t.Weight)
}
