// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key name and the trimmed
// file contents are the value.
//
// Recognized keys: embedding-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// EmbeddingAPIKey names the bearer token file for the embedding service.
const EmbeddingAPIKey = "embedding-api-key"

// Store holds loaded secrets keyed by filename.
type Store map[string]string

// Lookup returns the secret for key, falling back to the environment
// variable env when the file is absent. An empty env skips the fallback.
func (s Store) Lookup(key, env string) (string, bool) {
	if v, ok := s[key]; ok {
		return v, true
	}
	if env == "" {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(env))
	return v, v != ""
}

// Load reads all regular files in dir. A missing directory is not an error
// and yields an empty store. Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	store := make(Store)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}
	return store, nil
}
