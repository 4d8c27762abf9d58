// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/classifier"
	"github.com/pdiddy/fieldmap/internal/dataset"
	"github.com/pdiddy/fieldmap/internal/embedding"
	"github.com/pdiddy/fieldmap/internal/mapping"
)

// newSimilarity returns the embedding client when an endpoint is
// configured, or nil.
func newSimilarity() (*embedding.Client, error) {
	client, err := embedding.NewClient(appConfig.Embedding, embedding.WithLogger(appLog.Named("embedding")))
	if errors.Is(err, embedding.ErrNoEndpoint) {
		return nil, nil
	}
	return client, err
}

// newService builds the mapping facade from the loaded configuration. The
// dataset store, when non-nil, records training runs.
func newService(store *dataset.Store) (*mapping.Service, error) {
	clf := classifier.New(appConfig.Classifier, classifier.WithLogger(appLog.Named("classifier")))

	opts := []mapping.Option{mapping.WithLogger(appLog.Named("mapping"))}
	sim, err := newSimilarity()
	if err != nil {
		return nil, err
	}
	if sim != nil {
		opts = append(opts, mapping.WithSimilarity(sim))
	}
	if store != nil {
		opts = append(opts, mapping.WithRunRecorder(store))
	}
	return mapping.NewService(clf, appConfig.Mapping, opts...), nil
}

func openStore() (*dataset.Store, error) {
	store, err := dataset.NewStore(appConfig.Dataset)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	appLog.Debug("dataset opened", zap.String("dir", appConfig.Dataset.Dir))
	return store, nil
}

// readInput reads path, or standard input when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
