// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fieldmap/pkg/types"
)

// File is the on-disk YAML layout for a labelled dataset.
type File struct {
	Examples []types.TrainingExample `yaml:"examples"`
}

// ReadYAML decodes a dataset file. Field names are normalized with
// NormalizeName so files and the store agree on spelling.
func ReadYAML(r io.Reader) ([]types.TrainingExample, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing dataset YAML: %w", err)
	}
	for i := range f.Examples {
		f.Examples[i].SourceFieldName = NormalizeName(f.Examples[i].SourceFieldName)
		f.Examples[i].TargetFieldName = NormalizeName(f.Examples[i].TargetFieldName)
	}
	return f.Examples, nil
}

// ReadYAMLFile opens path and decodes it with ReadYAML.
func ReadYAMLFile(path string) ([]types.TrainingExample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()
	return ReadYAML(f)
}

// WriteYAML encodes examples in dataset file layout.
func WriteYAML(w io.Writer, examples []types.TrainingExample) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Examples: examples}); err != nil {
		return fmt.Errorf("marshaling dataset YAML: %w", err)
	}
	return enc.Close()
}

// ImportYAML appends the examples in the file at path to the store.
func (s *Store) ImportYAML(ctx context.Context, path string) (int, error) {
	examples, err := ReadYAMLFile(path)
	if err != nil {
		return 0, err
	}
	return s.AddExamples(ctx, examples)
}

// ExportYAML writes every stored example to path, creating parent
// directories as needed.
func (s *Store) ExportYAML(ctx context.Context, path string) (int, error) {
	examples, err := s.Examples(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := WriteYAML(f, examples); err != nil {
		return 0, err
	}
	return len(examples), f.Close()
}
