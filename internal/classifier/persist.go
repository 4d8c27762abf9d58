// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/fieldmap/pkg/types"
)

const (
	artifactFormat  = "fieldmap-mlp"
	artifactVersion = 1
)

// artifact is the on-disk representation of a trained network. Weights are
// stored as one row per output unit.
type artifact struct {
	Format       string          `json:"format"`
	Version      int             `json:"version"`
	InputDim     int             `json:"input_dim"`
	Features     []string        `json:"features"`
	Layers       []layerArtifact `json:"layers"`
	TrainedAt    *time.Time      `json:"trained_at,omitempty"`
	TrainingRuns int             `json:"training_runs"`
}

type layerArtifact struct {
	Units      int         `json:"units"`
	Activation activation  `json:"activation"`
	L2         float64     `json:"l2,omitempty"`
	Dropout    float64     `json:"dropout,omitempty"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
}

func newArtifact(n *network, trainedAt *time.Time, runs int) artifact {
	a := artifact{
		Format:       artifactFormat,
		Version:      artifactVersion,
		InputDim:     n.inputDim(),
		Features:     types.FeatureNames[:],
		TrainedAt:    trainedAt,
		TrainingRuns: runs,
	}
	for _, l := range n.layers {
		rows := make([][]float64, l.Out)
		for o := range rows {
			rows[o] = append([]float64(nil), l.W[o*l.In:(o+1)*l.In]...)
		}
		a.Layers = append(a.Layers, layerArtifact{
			Units:      l.Out,
			Activation: l.Activation,
			L2:         l.L2,
			Dropout:    l.Dropout,
			Weights:    rows,
			Bias:       append([]float64(nil), l.B...),
		})
	}
	return a
}

// network validates the artifact against the current feature contract and
// topology and rebuilds the in-memory network.
func (a artifact) network() (*network, error) {
	if a.Format != artifactFormat || a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: format %q version %d", ErrCorruptModel, a.Format, a.Version)
	}
	if a.InputDim != types.FeatureCount || len(a.Features) != types.FeatureCount {
		return nil, fmt.Errorf("%w: input dimension %d", ErrCorruptModel, a.InputDim)
	}
	for i, name := range a.Features {
		if name != types.FeatureNames[i] {
			return nil, fmt.Errorf("%w: feature %d is %q, want %q", ErrCorruptModel, i, name, types.FeatureNames[i])
		}
	}
	if len(a.Layers) != len(topology) {
		return nil, fmt.Errorf("%w: %d layers, want %d", ErrCorruptModel, len(a.Layers), len(topology))
	}

	n := &network{}
	in := a.InputDim
	for li, la := range a.Layers {
		spec := topology[li]
		if la.Units != spec.Units || la.Activation != spec.Activation {
			return nil, fmt.Errorf("%w: layer %d is %d %s units", ErrCorruptModel, li, la.Units, la.Activation)
		}
		if len(la.Weights) != la.Units || len(la.Bias) != la.Units {
			return nil, fmt.Errorf("%w: layer %d weight shape", ErrCorruptModel, li)
		}
		l := &dense{
			In:         in,
			Out:        la.Units,
			W:          make([]float64, 0, in*la.Units),
			B:          append([]float64(nil), la.Bias...),
			Activation: la.Activation,
			L2:         spec.L2,
			Dropout:    spec.Dropout,
		}
		for o, row := range la.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("%w: layer %d row %d has %d weights, want %d", ErrCorruptModel, li, o, len(row), in)
			}
			l.W = append(l.W, row...)
		}
		n.layers = append(n.layers, l)
		in = la.Units
	}
	return n, nil
}

// readArtifact decodes the artifact at path. The file is closed on every
// return path.
func readArtifact(path string) (artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return artifact{}, err
	}
	defer f.Close()

	var a artifact
	if err := json.NewDecoder(f).Decode(&a); err != nil {
		return artifact{}, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	return a, nil
}

// writeArtifact writes a to a temporary file next to path and renames it
// into place, so readers never observe a partial model.
func writeArtifact(path string, a artifact) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmp)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing model: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming model: %w", err)
	}
	return nil
}
