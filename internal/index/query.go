package index

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
)

// Clause matches documents holding value in field.
type Clause struct {
	Field string
	Value string
}

// OrQuery matches any document satisfying at least one clause. It is built
// per layer from a query vector.
type OrQuery struct {
	Layer   string
	Clauses []Clause
}

// NewOrQuery turns the query terms of layer into clauses over every field
// the ranker reads for that layer. With no fields, the layer itself is used.
func NewOrQuery(query termvec.Vector, layer string, fields []string) OrQuery {
	if len(fields) == 0 {
		fields = []string{layer}
	}
	terms := query.Terms(layer)
	q := OrQuery{
		Layer:   layer,
		Clauses: make([]Clause, 0, len(terms)*len(fields)),
	}
	for _, t := range terms {
		for _, f := range fields {
			q.Clauses = append(q.Clauses, Clause{Field: f, Value: t.Value})
		}
	}
	return q
}

func (q OrQuery) IsEmpty() bool { return len(q.Clauses) == 0 }

func (q OrQuery) String() string {
	parts := make([]string, len(q.Clauses))
	for i, c := range q.Clauses {
		parts[i] = c.Field + ":" + c.Value
	}
	return strings.Join(parts, " OR ")
}
