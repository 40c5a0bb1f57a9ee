// Package index is an in-memory layered inverted index. It answers per-layer
// OR queries, serves document vectors and provides the corpus statistics
// used for IDF.
package index

import (
	"cmp"
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

type MemoryIndex struct {
	mu        sync.RWMutex
	index     map[termKey]map[string]*Posting
	docs      map[string]termvec.Vector
	layerDocs map[string]int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:     make(map[termKey]map[string]*Posting),
		docs:      make(map[string]termvec.Vector),
		layerDocs: make(map[string]int64),
	}
}

// AddDocument indexes every term of vec. Re-adding an ID replaces the
// previous vector.
func (m *MemoryIndex) AddDocument(docID string, vec termvec.Vector) error {
	if docID == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "document id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, exists := m.docs[docID]; exists {
		m.remove(docID, old)
	}
	for t := range vec.All() {
		if t.Frequency <= 0 {
			continue
		}
		key := termKey{field: t.Layer, value: t.Value}
		docs, exists := m.index[key]
		if !exists {
			docs = make(map[string]*Posting)
			m.index[key] = docs
		}
		docs[docID] = &Posting{DocID: docID, Frequency: t.Frequency}
	}
	for _, layer := range indexedLayers(vec) {
		m.layerDocs[layer]++
	}
	m.docs[docID] = vec
	return nil
}

// indexedLayers lists the layers of vec with at least one posting-bearing
// term, in sorted order.
func indexedLayers(vec termvec.Vector) []string {
	var layers []string
	for t := range vec.All() {
		if t.Frequency <= 0 {
			continue
		}
		if n := len(layers); n == 0 || layers[n-1] != t.Layer {
			layers = append(layers, t.Layer)
		}
	}
	return layers
}

// remove drops the postings of a previously indexed vector. Callers hold
// the write lock.
func (m *MemoryIndex) remove(docID string, vec termvec.Vector) {
	for t := range vec.All() {
		key := termKey{field: t.Layer, value: t.Value}
		if docs, ok := m.index[key]; ok {
			delete(docs, docID)
			if len(docs) == 0 {
				delete(m.index, key)
			}
		}
	}
	for _, layer := range indexedLayers(vec) {
		m.layerDocs[layer]--
	}
	delete(m.docs, docID)
}

// Search returns the postings for one term in DocID order.
func (m *MemoryIndex) Search(field, value string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs, exists := m.index[termKey{field: field, value: value}]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for _, posting := range docs {
		result = append(result, *posting)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Match returns the documents satisfying any clause of q, in ascending ID
// order. When more than maxDocs match, the documents with the highest
// summed clause frequency are kept (ties by ID).
func (m *MemoryIndex) Match(ctx context.Context, q OrQuery, maxDocs int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.IsEmpty() || maxDocs <= 0 {
		return []string{}, nil
	}

	postingsPerClause := make(map[Clause]PostingList, len(q.Clauses))
	for _, c := range q.Clauses {
		if postings := m.Search(c.Field, c.Value); len(postings) > 0 {
			postingsPerClause[c] = postings
		}
	}
	weight := unionPostings(postingsPerClause)

	ids := make([]string, 0, len(weight))
	for id := range weight {
		ids = append(ids, id)
	}
	if len(ids) > maxDocs {
		slices.SortFunc(ids, func(a, b string) int {
			if c := cmp.Compare(weight[b], weight[a]); c != 0 {
				return c
			}
			return strings.Compare(a, b)
		})
		ids = ids[:maxDocs]
	}
	slices.Sort(ids)
	return ids, nil
}

func unionPostings(postingsPerClause map[Clause]PostingList) map[string]int {
	result := make(map[string]int)
	for _, postings := range postingsPerClause {
		for _, p := range postings {
			result[p.DocID] += p.Frequency
		}
	}
	return result
}

// Vector returns the stored vector of docID.
func (m *MemoryIndex) Vector(ctx context.Context, docID string) (termvec.Vector, error) {
	if err := ctx.Err(); err != nil {
		return termvec.Vector{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	vec, ok := m.docs[docID]
	if !ok {
		return termvec.Vector{}, apperrors.Newf(apperrors.ErrDocumentNotFound, "document %q", docID)
	}
	return vec, nil
}

func (m *MemoryIndex) NumDocuments() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs))
}

func (m *MemoryIndex) DocumentFrequency(field, value string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.index[termKey{field: field, value: value}]))
}

// TermStats returns the document frequency and total term frequency.
func (m *MemoryIndex) TermStats(field, value string) TermStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := m.index[termKey{field: field, value: value}]
	stats := TermStats{DocFreq: int64(len(docs))}
	for _, p := range docs {
		stats.TotalFreq += int64(p.Frequency)
	}
	return stats
}

// LayerStats returns the collection size and how many documents carry at
// least one term of layer.
func (m *MemoryIndex) LayerStats(layer string) (numDocs, docsWithLayer int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), m.layerDocs[layer]
}
