// Package setting enumerates the non-empty layer subsets that an
// evaluation run compares.
package setting

import (
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/errors"
)

// Setting is one non-empty subset of the configured layers. Bit i of Index
// is set when the i-th configured layer is included.
type Setting struct {
	Index  int
	Layers []string
	Label  string
}

// Contains reports whether layer is part of the setting.
func (s Setting) Contains(layer string) bool {
	return slices.Contains(s.Layers, layer)
}

// LayerSet returns the layers as a termvec.LayerSet for projection.
func (s Setting) LayerSet() termvec.LayerSet {
	return termvec.NewLayerSet(s.Layers...)
}

// Fields expands the setting's layers into the document fields read by a
// ranker, e.g. "title.textual" when sections are in use.
func (s Setting) Fields(fields func(layer string) []string) termvec.LayerSet {
	set := make(termvec.LayerSet)
	for _, layer := range s.Layers {
		for _, f := range fields(layer) {
			set[f] = struct{}{}
		}
	}
	return set
}

func (s Setting) String() string { return s.Label }

// Enumerate returns all 2^L-1 settings in index order. Layers keep their
// configured order inside each setting.
func Enumerate(layers []string) ([]Setting, error) {
	if len(layers) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "no layers to combine")
	}
	if len(layers) > config.MaxLayers {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "%d layers exceed the maximum of %d", len(layers), config.MaxLayers)
	}
	seen := make(map[string]struct{}, len(layers))
	for _, l := range layers {
		if l == "" {
			return nil, apperrors.New(apperrors.ErrInvalidConfig, "empty layer name")
		}
		if _, dup := seen[l]; dup {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "duplicate layer %q", l)
		}
		seen[l] = struct{}{}
	}

	total := 1<<len(layers) - 1
	settings := make([]Setting, 0, total)
	for mask := 1; mask <= total; mask++ {
		var members []string
		for i, l := range layers {
			if mask&(1<<i) != 0 {
				members = append(members, l)
			}
		}
		settings = append(settings, Setting{
			Index:  mask,
			Layers: members,
			Label:  strings.Join(members, "+"),
		})
	}
	return settings, nil
}

// Baseline finds the setting whose layers are exactly the given set.
func Baseline(settings []Setting, layers []string) (Setting, error) {
	want := termvec.NewLayerSet(layers...)
	for _, s := range settings {
		if len(s.Layers) != len(want) {
			continue
		}
		match := true
		for _, l := range s.Layers {
			if !want.Has(l) {
				match = false
				break
			}
		}
		if match {
			return s, nil
		}
	}
	return Setting{}, apperrors.Newf(apperrors.ErrUnknownLayer, "no setting matches baseline %v", layers)
}
