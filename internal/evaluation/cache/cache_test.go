package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/metrics"
)

func vectorFor(id string) termvec.Vector {
	return termvec.Of(termvec.Term{Layer: "textual", Value: id, Frequency: 1, Weight: 1})
}

func TestDocCache_ReadThrough(t *testing.T) {
	c, err := New(8, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)

	var loads atomic.Int32
	load := func(_ context.Context, id string) (termvec.Vector, error) {
		loads.Add(1)
		return vectorFor(id), nil
	}
	ctx := context.Background()

	v, err := c.GetOrLoad(ctx, "d1", load)
	require.NoError(t, err)
	assert.True(t, v.Equal(vectorFor("d1")))
	_, err = c.GetOrLoad(ctx, "d1", load)
	require.NoError(t, err)

	assert.Equal(t, int32(1), loads.Load())
	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestDocCache_ErrorsAreNotCached(t *testing.T) {
	c, err := New(8, nil)
	require.NoError(t, err)
	boom := errors.New("boom")

	_, err = c.GetOrLoad(context.Background(), "d1", func(context.Context, string) (termvec.Vector, error) {
		return termvec.Vector{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestDocCache_Bounded(t *testing.T) {
	c, err := New(2, nil)
	require.NoError(t, err)
	load := func(_ context.Context, id string) (termvec.Vector, error) { return vectorFor(id), nil }
	for _, id := range []string{"a", "b", "c"} {
		_, err := c.GetOrLoad(context.Background(), id, load)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "least recently used entry evicted")

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestDocCache_Concurrent(t *testing.T) {
	c, err := New(64, nil)
	require.NoError(t, err)
	load := func(_ context.Context, id string) (termvec.Vector, error) { return vectorFor(id), nil }

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"a", "b", "c", "d"}[i%4]
			v, err := c.GetOrLoad(context.Background(), id, load)
			assert.NoError(t, err)
			assert.True(t, v.Equal(vectorFor(id)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, c.Len())
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(0, nil)
	assert.Error(t, err)
}
