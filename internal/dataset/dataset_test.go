// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fieldmap/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.DatasetConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func example(source, target string, matched bool) types.TrainingExample {
	return types.TrainingExample{
		FieldPair: types.FieldPair{SourceFieldName: source, TargetFieldName: target},
		Matched:   matched,
	}
}

func TestNewStoreCreatesSchema(t *testing.T) {
	store := testStore(t)

	for _, table := range []string{"examples", "training_runs", "evaluations"} {
		var count int
		require.NoError(t, store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count))
		assert.Equal(t, 1, count, table)
	}
	_, err := os.Stat(filepath.Join(store.dir, dbFile))
	assert.NoError(t, err)
}

func TestExamplesPreserveInsertionOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first := []types.TrainingExample{example("zeta", "z", true), example("alpha", "a", false)}
	second := []types.TrainingExample{example("mid", "m", true)}
	second[0].SourceFieldValue = "42"
	second[0].PrecomputedSimilarity = 0.75

	n, err := store.AddExamples(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = store.AddExamples(ctx, second)
	require.NoError(t, err)

	got, err := store.Examples(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(first, second...), got)

	count, err := store.CountExamples(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, store.ClearExamples(ctx))
	got, err = store.Examples(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAddExamplesNormalizesNames(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Full-width letters and digits fold to ASCII under NFKC.
	_, err := store.AddExamples(ctx, []types.TrainingExample{example(" ｅｍａｉｌ１ ", "Ｅmail", true)})
	require.NoError(t, err)

	got, err := store.Examples(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "email1", got[0].SourceFieldName)
	assert.Equal(t, "Email", got[0].TargetFieldName)
}

func TestRunsRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run, err := store.RecordRun(ctx, types.TrainingRun{
		StartedAt:       started,
		FinishedAt:      started.Add(time.Minute),
		Examples:        100,
		TrainCount:      80,
		ValidationCount: 20,
		Epochs:          100,
		FinalLoss:       0.12,
		FinalAccuracy:   0.97,
		FinalValLoss:    0.2,
		ModelPath:       "models/m.json",
	})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	second, err := store.RecordRun(ctx, types.TrainingRun{ID: "fixed", StartedAt: started, FinishedAt: started})
	require.NoError(t, err)
	assert.Equal(t, "fixed", second.ID)

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, run, runs[0])
	assert.Equal(t, "fixed", runs[1].ID)

	_, err = store.RecordRun(ctx, types.TrainingRun{ID: "fixed"})
	assert.Error(t, err, "duplicate run IDs are rejected")
}

func TestEvaluationsRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	m := types.EvaluationMetrics{
		Accuracy: 0.9, Precision: 0.8, Recall: 1, F1: 0.888,
		TruePositives: 4, FalsePositives: 1, TrueNegatives: 5, Total: 10,
	}
	rec, err := store.RecordEvaluation(ctx, "models/m.json", m)
	require.NoError(t, err)

	recs, err := store.Evaluations(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec, recs[0])
	assert.Equal(t, at, recs[0].EvaluatedAt)
	assert.Equal(t, m, recs[0].Metrics)
}

const sampleYAML = `examples:
  - source_field_name: email_address
    target_field_name: Email
    precomputed_similarity: 0.9
    matched: true
  - source_field_name: "ｐｈｏｎｅ"
    source_field_value: "555-0100"
    target_field_name: zip_code
    matched: false
`

func TestReadYAML(t *testing.T) {
	got, err := ReadYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "email_address", got[0].SourceFieldName)
	assert.Equal(t, 0.9, got[0].PrecomputedSimilarity)
	assert.True(t, got[0].Matched)
	assert.Equal(t, "phone", got[1].SourceFieldName)
	assert.Equal(t, "555-0100", got[1].SourceFieldValue)
	assert.False(t, got[1].Matched)
}

func TestReadYAMLEmptyAndInvalid(t *testing.T) {
	got, err := ReadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadYAML(strings.NewReader("examples: [unterminated"))
	assert.Error(t, err)
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	in := []types.TrainingExample{example("first_name", "First Name", true), example("city", "email", false)}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, in))
	out, err := ReadYAML(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestImportExportYAML(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(src, []byte(sampleYAML), 0o644))

	n, err := store.ImportYAML(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := filepath.Join(dir, "out", "dataset.yaml")
	n, err = store.ExportYAML(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exported, err := ReadYAMLFile(dst)
	require.NoError(t, err)
	stored, err := store.Examples(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, exported)

	_, err = store.ImportYAML(ctx, filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
