package index

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

func term(layer, value string, freq int) termvec.Term {
	return termvec.Term{Layer: layer, Value: value, Frequency: freq, Weight: float64(freq)}
}

func buildIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex()
	require.NoError(t, idx.AddDocument("d1", termvec.Of(term("textual", "berlin", 3), term("uri", "dbr:Berlin", 1))))
	require.NoError(t, idx.AddDocument("d2", termvec.Of(term("textual", "berlin", 1), term("textual", "wall", 2))))
	require.NoError(t, idx.AddDocument("d3", termvec.Of(term("textual", "paris", 1), term("title.textual", "berlin", 1))))
	return idx
}

func TestMemoryIndex_Stats(t *testing.T) {
	idx := buildIndex(t)

	assert.Equal(t, int64(3), idx.NumDocuments())
	assert.Equal(t, int64(2), idx.DocumentFrequency("textual", "berlin"))
	assert.Equal(t, int64(0), idx.DocumentFrequency("textual", "rome"))
	assert.Equal(t, TermStats{DocFreq: 2, TotalFreq: 4}, idx.TermStats("textual", "berlin"))

	n, withLayer := idx.LayerStats("uri")
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(1), withLayer)
	_, withLayer = idx.LayerStats("textual")
	assert.Equal(t, int64(3), withLayer)
}

func TestMemoryIndex_Search(t *testing.T) {
	idx := buildIndex(t)
	postings := idx.Search("textual", "berlin")
	require.Len(t, postings, 2)
	assert.Equal(t, "d1", postings[0].DocID)
	assert.Equal(t, 3, postings[0].Frequency)
	assert.Nil(t, idx.Search("textual", "rome"))
}

func TestMemoryIndex_Match(t *testing.T) {
	idx := buildIndex(t)
	ctx := context.Background()
	query := termvec.Of(term("textual", "berlin", 1), term("textual", "paris", 1), term("uri", "dbr:Rome", 1))

	ids, err := idx.Match(ctx, NewOrQuery(query, "textual", nil), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2", "d3"}, ids)

	ids, err = idx.Match(ctx, NewOrQuery(query, "uri", nil), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// d1 has the highest summed frequency, d2 and d3 tie and d2 wins by ID
	ids, err = idx.Match(ctx, NewOrQuery(query, "textual", nil), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d2"}, ids)

	ids, err = idx.Match(ctx, NewOrQuery(query, "time", nil), 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemoryIndex_MatchSections(t *testing.T) {
	idx := buildIndex(t)
	query := termvec.Of(term("textual", "berlin", 1))
	q := NewOrQuery(query, "textual", []string{"title.textual"})
	assert.Equal(t, "title.textual:berlin", q.String())

	ids, err := idx.Match(context.Background(), q, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d3"}, ids)
}

func TestMemoryIndex_MatchCancelled(t *testing.T) {
	idx := buildIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Match(ctx, NewOrQuery(termvec.Of(term("textual", "berlin", 1)), "textual", nil), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryIndex_Vector(t *testing.T) {
	idx := buildIndex(t)
	ctx := context.Background()

	vec, err := idx.Vector(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, 2, vec.Len())

	_, err = idx.Vector(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestMemoryIndex_Replace(t *testing.T) {
	idx := buildIndex(t)
	require.NoError(t, idx.AddDocument("d1", termvec.Of(term("textual", "wall", 1))))

	assert.Equal(t, int64(3), idx.NumDocuments())
	assert.Equal(t, int64(1), idx.DocumentFrequency("textual", "berlin"))
	assert.Equal(t, int64(2), idx.DocumentFrequency("textual", "wall"))
	_, withURI := idx.LayerStats("uri")
	assert.Equal(t, int64(0), withURI)

	assert.ErrorIs(t, idx.AddDocument("", termvec.Vector{}), apperrors.ErrInvalidInput)
}

func TestMemoryIndex_LayerStatsIgnoreUnindexedTerms(t *testing.T) {
	idx := NewMemoryIndex()
	require.NoError(t, idx.AddDocument("d1", termvec.Of(term("textual", "berlin", 1), term("uri", "dbr:Berlin", 0))))
	require.NoError(t, idx.AddDocument("d2", termvec.Of(term("uri", "dbr:Paris", 1))))

	assert.Equal(t, int64(0), idx.DocumentFrequency("uri", "dbr:Berlin"))
	_, withURI := idx.LayerStats("uri")
	assert.Equal(t, int64(1), withURI, "zero-frequency terms do not count for their layer")

	require.NoError(t, idx.AddDocument("d1", termvec.Of(term("uri", "dbr:Berlin", 0))))
	_, withURI = idx.LayerStats("uri")
	assert.Equal(t, int64(1), withURI)
	_, withTextual := idx.LayerStats("textual")
	assert.Equal(t, int64(0), withTextual)
}

func BenchmarkMemoryIndex_Match(b *testing.B) {
	idx := NewMemoryIndex()
	values := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i := 0; i < 5000; i++ {
		bld := termvec.NewBuilder()
		for j, v := range values {
			if (i+j)%3 == 0 {
				bld.AddTerm("textual", v, 1+j%4, 1)
			}
		}
		_ = idx.AddDocument(strconv.Itoa(i), bld.Build())
	}
	q := NewOrQuery(termvec.Of(term("textual", "a", 1), term("textual", "c", 1)), "textual", nil)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Match(ctx, q, 1000)
	}
}
