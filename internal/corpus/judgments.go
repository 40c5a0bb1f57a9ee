package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// Judgments maps query ID to document ID to graded relevance. A missing
// entry means relevance 0.
type Judgments map[string]map[string]float64

// For returns the judgments of one query; nil when there are none.
func (j Judgments) For(queryID string) map[string]float64 {
	return j[queryID]
}

// NumRelevant counts documents judged above zero for queryID.
func (j Judgments) NumRelevant(queryID string) int {
	n := 0
	for _, rel := range j[queryID] {
		if rel > 0 {
			n++
		}
	}
	return n
}

func (j Judgments) set(queryID, docID string, rel float64) {
	docs, ok := j[queryID]
	if !ok {
		docs = make(map[string]float64)
		j[queryID] = docs
	}
	docs[docID] = rel
}

// LoadJudgments reads a .json file as a nested object, and anything else as
// TREC qrels.
func LoadJudgments(path string) (Judgments, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening judgments %s: %w", path, err)
	}
	defer f.Close()

	var j Judgments
	if strings.EqualFold(filepath.Ext(path), ".json") {
		j, err = ReadJSONJudgments(f)
	} else {
		j, err = ReadQrels(f)
	}
	if err != nil {
		return nil, fmt.Errorf("reading judgments %s: %w", path, err)
	}
	return j, nil
}

// ReadJSONJudgments decodes {"q1": {"d1": 2, "d2": 0}}. Negative grades are
// clamped to 0.
func ReadJSONJudgments(r io.Reader) (Judgments, error) {
	var raw map[string]map[string]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "decoding judgments: %v", err)
	}
	j := make(Judgments, len(raw))
	for q, docs := range raw {
		for d, rel := range docs {
			j.set(q, d, max(rel, 0))
		}
	}
	return j, nil
}

// ReadQrels parses "qid iteration docid relevance" lines. Blank lines and
// lines starting with # are skipped.
func ReadQrels(r io.Reader) (Judgments, error) {
	j := make(Judgments)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "line %d: expected 4 fields, got %d", line, len(fields))
		}
		rel, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, "line %d: relevance %q", line, fields[3])
		}
		j.set(fields[0], fields[2], max(rel, 0))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning qrels: %w", err)
	}
	return j, nil
}
