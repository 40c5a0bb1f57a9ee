// Package corpus loads document and query vectors and the relevance
// judgments they are evaluated against.
package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

type Document struct {
	ID    string         `json:"id"`
	Terms termvec.Vector `json:"terms"`
}

type Query struct {
	ID    string         `json:"id"`
	Terms termvec.Vector `json:"terms"`
}

// Corpus is the file format read by Load.
type Corpus struct {
	Documents []Document `json:"documents"`
	Queries   []Query    `json:"queries"`
}

// Load reads a JSON corpus file.
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return c, nil
}

// Read decodes a corpus and rejects empty or duplicate IDs.
func Read(r io.Reader) (*Corpus, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "decoding corpus: %v", err)
	}
	seen := make(map[string]struct{}, len(c.Documents))
	for _, d := range c.Documents {
		if err := checkID(seen, "document", d.ID); err != nil {
			return nil, err
		}
	}
	seen = make(map[string]struct{}, len(c.Queries))
	for _, q := range c.Queries {
		if err := checkID(seen, "query", q.ID); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func checkID(seen map[string]struct{}, kind, id string) error {
	if id == "" {
		return apperrors.Newf(apperrors.ErrInvalidInput, "%s without id", kind)
	}
	if _, dup := seen[id]; dup {
		return apperrors.Newf(apperrors.ErrInvalidInput, "duplicate %s id %q", kind, id)
	}
	seen[id] = struct{}{}
	return nil
}

// IndexInto adds every document to idx.
func (c *Corpus) IndexInto(idx *index.MemoryIndex) error {
	for _, d := range c.Documents {
		if err := idx.AddDocument(d.ID, d.Terms); err != nil {
			return fmt.Errorf("indexing document %s: %w", d.ID, err)
		}
	}
	return nil
}
