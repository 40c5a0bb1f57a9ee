package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/significance"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/postgres"
)

func tv(layer, value string) termvec.Term {
	return termvec.Term{Layer: layer, Value: value, Frequency: 1, Weight: 1}
}

func sampleReport(t *testing.T) *evaluation.Report {
	t.Helper()
	idx := index.NewMemoryIndex()
	require.NoError(t, idx.AddDocument("d1", termvec.Of(tv("textual", "berlin"))))
	require.NoError(t, idx.AddDocument("d2", termvec.Of(termvec.Term{Layer: "uri", Value: "dbr:Berlin", Frequency: 2, Weight: 1})))
	require.NoError(t, idx.AddDocument("d3", termvec.Of(tv("textual", "paris"))))

	r, err := evaluation.New(evaluation.Options{
		Layers:      []string{"textual", "uri"},
		Baseline:    []string{"textual"},
		MaxDocs:     10,
		Cutoff:      5,
		Workers:     2,
		Measures:    []scoring.Measure{scoring.PrecisionAt(1), scoring.MRR},
		SortMeasure: scoring.MRR,
	}, evaluation.Components{
		Ranker:     ranker.NewTfIdf(nil, nil, nil, false),
		Tester:     significance.TTest{},
		Retriever:  idx,
		Documents:  idx,
		Statistics: idx,
	})
	require.NoError(t, err)

	queries := []corpus.Query{
		{ID: "q/1", Terms: termvec.Of(tv("textual", "berlin"), tv("uri", "dbr:Berlin"))},
		{ID: "q2", Terms: termvec.Of(tv("textual", "paris"))},
	}
	report, err := r.Run(context.Background(), queries, corpus.Judgments{
		"q/1": {"d2": 1},
		"q2":  {"d3": 1},
	})
	require.NoError(t, err)
	return report
}

func readTSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteAggregate(t *testing.T) {
	report := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, WriteAggregate(&buf, report))

	rows := readTSV(t, buf.Bytes())
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"setting", "rankings", "p@1", "p@1_p", "mrr", "mrr_p"}, rows[0])
	assert.Equal(t, "textual+uri", rows[1][0], "best setting first")
	assert.Equal(t, "2", rows[1][1])

	for _, row := range rows[1:] {
		if row[0] == "textual" {
			assert.Equal(t, "NaN", row[3], "baseline has no p-value")
		}
	}
}

func TestWriteSettingAndQuery(t *testing.T) {
	report := sampleReport(t)

	var buf bytes.Buffer
	require.NoError(t, WriteSetting(&buf, report, "uri"))
	rows := readTSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"q/1", "2", "1", "1.0000", "1.0000"}, rows[1])
	assert.Equal(t, []string{"q2", "1", "1", "0.0000", "0.0000"}, rows[2])

	assert.Error(t, WriteSetting(&bytes.Buffer{}, report, "frame"))

	buf.Reset()
	require.NoError(t, WriteQuery(&buf, report, report.Queries[0]))
	rows = readTSV(t, buf.Bytes())
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"rank", "setting", "p@1", "mrr", "top"}, rows[0])
	assert.Equal(t, []string{"1", "textual+uri", "1.0000", "1.0000", "d2,d1"}, rows[1])
	assert.Equal(t, []string{"2", "uri", "1.0000", "1.0000", "d2"}, rows[2])
	assert.Equal(t, []string{"3", "textual", "0.0000", "0.0000", "d1"}, rows[3])
}

func TestWriteTables(t *testing.T) {
	report := sampleReport(t)
	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteTables(dir, report))

	for _, name := range []string{
		"aggregate.tsv",
		"setting-textual.tsv",
		"setting-uri.tsv",
		"setting-textual+uri.tsv",
		"query-q_1.tsv",
		"query-q2.tsv",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestWriteTables_CollidingNames(t *testing.T) {
	report := sampleReport(t)
	clash := report.Queries[0]
	clash.QueryID = "q_1"
	report.Queries = append(report.Queries, clash)

	dir := t.TempDir()
	require.NoError(t, WriteTables(dir, report))

	first, err := os.ReadFile(filepath.Join(dir, "query-q_1.tsv"))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(dir, "query-q_1-2.tsv"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "both queries are written")

	used := fileNames{}
	assert.Equal(t, "query-a_b.tsv", used.next("query", "a/b"))
	assert.Equal(t, "query-a_b-2.tsv", used.next("query", "a_b"))
	assert.Equal(t, "query-a_b-3.tsv", used.next("query", "a:b"))
}

func TestSummarize(t *testing.T) {
	report := sampleReport(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Summarize(report, now)

	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, "textual", s.Baseline)
	assert.Equal(t, "mrr", s.SortMeasure)
	assert.Empty(t, s.Failed)
	require.Len(t, s.Settings, 3)

	data, err := json.Marshal(s)
	require.NoError(t, err, "NaN values must not break encoding")

	var decoded Summary
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, st := range decoded.Settings {
		if st.Label == "textual" {
			assert.Nil(t, st.PValues["mrr"])
			require.NotNil(t, st.Scores["mrr"])
			assert.Equal(t, 0.5, *st.Scores["mrr"])
		}
	}
}

// TestStore_Postgres runs against a live database when LAYEREVAL_POSTGRES_HOST
// is set.
func TestStore_Postgres(t *testing.T) {
	if os.Getenv("LAYEREVAL_POSTGRES_HOST") == "" {
		t.Skip("LAYEREVAL_POSTGRES_HOST not set")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Postgres)
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	require.NoError(t, store.EnsureSchema(ctx))

	report := sampleReport(t)
	report.RunID = "test-" + time.Now().Format(time.RFC3339Nano)
	id, err := store.Save(ctx, report)
	require.NoError(t, err)
	assert.Positive(t, id)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.RunID, latest.RunID)

	list, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
