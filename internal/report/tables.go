// Package report writes evaluation reports as TSV tables and persists run
// summaries in PostgreSQL.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/scoring"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._+-]`)

// FileName maps a setting label or query ID to a safe file name stem.
func FileName(kind, name string) string {
	return kind + "-" + unsafeName.ReplaceAllString(name, "_") + ".tsv"
}

// fileNames hands out FileName results, adding -2, -3, ... to a stem that
// another name already produced.
type fileNames map[string]bool

func (used fileNames) next(kind, name string) string {
	file := FileName(kind, name)
	stem := strings.TrimSuffix(file, ".tsv")
	for n := 2; used[file]; n++ {
		file = stem + "-" + strconv.Itoa(n) + ".tsv"
	}
	used[file] = true
	return file
}

// WriteTables writes aggregate.tsv, one setting-<label>.tsv per setting and
// one query-<id>.tsv per evaluated query into dir. IDs that sanitise to the
// same file name get a numeric suffix in report order.
func WriteTables(dir string, r *evaluation.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "aggregate.tsv"), func(w io.Writer) error {
		return WriteAggregate(w, r)
	}); err != nil {
		return err
	}
	used := fileNames{"aggregate.tsv": true}
	for _, s := range r.Settings {
		label := s.Setting.Label
		if err := writeFile(filepath.Join(dir, used.next("setting", label)), func(w io.Writer) error {
			return WriteSetting(w, r, label)
		}); err != nil {
			return err
		}
	}
	for _, q := range r.Queries {
		if err := writeFile(filepath.Join(dir, used.next("query", q.QueryID)), func(w io.Writer) error {
			return WriteQuery(w, r, q)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func newTSV(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func measureNames(measures []scoring.Measure) []string {
	names := make([]string, len(measures))
	for i, m := range measures {
		names[i] = m.String()
	}
	return names
}

// WriteAggregate writes one row per setting in report order, with every
// measure followed by its p-value against the baseline.
func WriteAggregate(w io.Writer, r *evaluation.Report) error {
	cw := newTSV(w)
	header := []string{"setting", "rankings"}
	for _, name := range measureNames(r.Measures) {
		header = append(header, name, name+"_p")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range r.Settings {
		row := []string{s.Setting.Label, strconv.Itoa(s.Score.NumRankings())}
		for _, m := range r.Measures {
			row = append(row, formatFloat(s.Score.Get(m)), formatFloat(s.PValue(m)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSetting writes one row per evaluated query for the given setting.
func WriteSetting(w io.Writer, r *evaluation.Report, label string) error {
	cw := newTSV(w)
	header := append([]string{"query", "candidates", "relevant"}, measureNames(r.Measures)...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, q := range r.Queries {
		s, ok := q.Setting(label)
		if !ok {
			return fmt.Errorf("query %s has no setting %q", q.QueryID, label)
		}
		row := []string{q.QueryID, strconv.Itoa(q.NumCandidates), strconv.Itoa(q.NumRelevant)}
		for _, m := range r.Measures {
			row = append(row, formatFloat(s.Score.Get(m)))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteQuery writes one row per setting for q, best first by the report's
// sort measure, with the top of each ranking.
func WriteQuery(w io.Writer, r *evaluation.Report, q evaluation.QueryResult) error {
	cw := newTSV(w)
	header := append([]string{"rank", "setting"}, measureNames(r.Measures)...)
	header = append(header, "top")
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, s := range q.Ranked(r.SortMeasure) {
		row := []string{strconv.Itoa(i + 1), s.Setting.Label}
		for _, m := range r.Measures {
			row = append(row, formatFloat(s.Score.Get(m)))
		}
		row = append(row, strings.Join(ranker.DocIDs(s.Hits), ","))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
