// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset persists labelled training examples, training run
// records and evaluation results in a SQLite database under the dataset
// directory.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/fieldmap/pkg/types"
)

const dbFile = "fieldmap.db"

// Store manages the dataset SQLite database.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// EvaluationRecord is one persisted evaluation of a model against a holdout.
type EvaluationRecord struct {
	ID          string                  `json:"id" yaml:"id"`
	EvaluatedAt time.Time               `json:"evaluated_at" yaml:"evaluated_at"`
	ModelPath   string                  `json:"model_path" yaml:"model_path"`
	Metrics     types.EvaluationMetrics `json:"metrics" yaml:"metrics"`
}

// NewStore opens or creates dir/fieldmap.db and its schema.
func NewStore(cfg types.DatasetConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS examples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_field_name TEXT NOT NULL,
			source_field_value TEXT,
			target_field_name TEXT NOT NULL,
			precomputed_similarity REAL NOT NULL DEFAULT 0,
			matched INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS training_runs (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			examples INTEGER NOT NULL,
			train_count INTEGER NOT NULL,
			validation_count INTEGER NOT NULL,
			epochs INTEGER NOT NULL,
			final_loss REAL,
			final_accuracy REAL,
			final_val_loss REAL,
			model_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS evaluations (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			evaluated_at TEXT NOT NULL,
			model_path TEXT,
			accuracy REAL, precision REAL, recall REAL, f1 REAL,
			true_positives INTEGER, false_positives INTEGER,
			true_negatives INTEGER, false_negatives INTEGER,
			total INTEGER
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// NormalizeName applies NFKC normalization and trims surrounding space so
// full-width and compatibility forms of a field name compare equal.
func NormalizeName(name string) string {
	return strings.TrimSpace(norm.NFKC.String(name))
}

// AddExamples appends examples in order within one transaction. Field
// names are normalized with NormalizeName.
func (s *Store) AddExamples(ctx context.Context, examples []types.TrainingExample) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO examples (source_field_name, source_field_value, target_field_name, precomputed_similarity, matched)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, ex := range examples {
		_, err := stmt.ExecContext(ctx,
			NormalizeName(ex.SourceFieldName), ex.SourceFieldValue,
			NormalizeName(ex.TargetFieldName), ex.PrecomputedSimilarity, ex.Matched)
		if err != nil {
			return 0, fmt.Errorf("inserting example %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing examples: %w", err)
	}
	return len(examples), nil
}

// Examples returns every stored example in insertion order. Training
// splits on this order, so it must be stable.
func (s *Store) Examples(ctx context.Context) ([]types.TrainingExample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_field_name, COALESCE(source_field_value, ''), target_field_name, precomputed_similarity, matched
		 FROM examples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying examples: %w", err)
	}
	defer rows.Close()

	var out []types.TrainingExample
	for rows.Next() {
		var ex types.TrainingExample
		if err := rows.Scan(&ex.SourceFieldName, &ex.SourceFieldValue, &ex.TargetFieldName,
			&ex.PrecomputedSimilarity, &ex.Matched); err != nil {
			return nil, fmt.Errorf("scanning example: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// CountExamples returns the number of stored examples.
func (s *Store) CountExamples(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM examples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting examples: %w", err)
	}
	return n, nil
}

// ClearExamples removes every stored example.
func (s *Store) ClearExamples(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM examples`); err != nil {
		return fmt.Errorf("clearing examples: %w", err)
	}
	return nil
}

// RecordRun stores run, assigning a new ID when run.ID is empty, and
// returns the stored record.
func (s *Store) RecordRun(ctx context.Context, run types.TrainingRun) (types.TrainingRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_runs (id, started_at, finished_at, examples, train_count, validation_count,
			epochs, final_loss, final_accuracy, final_val_loss, model_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Examples, run.TrainCount, run.ValidationCount, run.Epochs,
		run.FinalLoss, run.FinalAccuracy, run.FinalValLoss, run.ModelPath,
	)
	if err != nil {
		return run, fmt.Errorf("inserting training run %s: %w", run.ID, err)
	}
	return run, nil
}

// Runs returns training runs in the order they were recorded.
func (s *Store) Runs(ctx context.Context) ([]types.TrainingRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, examples, train_count, validation_count,
			epochs, final_loss, final_accuracy, final_val_loss, COALESCE(model_path, '')
		 FROM training_runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying training runs: %w", err)
	}
	defer rows.Close()

	var out []types.TrainingRun
	for rows.Next() {
		var r types.TrainingRun
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Examples, &r.TrainCount,
			&r.ValidationCount, &r.Epochs, &r.FinalLoss, &r.FinalAccuracy,
			&r.FinalValLoss, &r.ModelPath); err != nil {
			return nil, fmt.Errorf("scanning training run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordEvaluation stores metrics computed for the model at modelPath.
func (s *Store) RecordEvaluation(ctx context.Context, modelPath string, m types.EvaluationMetrics) (EvaluationRecord, error) {
	rec := EvaluationRecord{
		ID:          uuid.NewString(),
		EvaluatedAt: s.now().UTC(),
		ModelPath:   modelPath,
		Metrics:     m,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, evaluated_at, model_path, accuracy, precision, recall, f1,
			true_positives, false_positives, true_negatives, false_negatives, total)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, formatTime(rec.EvaluatedAt), modelPath,
		m.Accuracy, m.Precision, m.Recall, m.F1,
		m.TruePositives, m.FalsePositives, m.TrueNegatives, m.FalseNegatives, m.Total,
	)
	if err != nil {
		return rec, fmt.Errorf("inserting evaluation: %w", err)
	}
	return rec, nil
}

// Evaluations returns recorded evaluations, oldest first.
func (s *Store) Evaluations(ctx context.Context) ([]EvaluationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, evaluated_at, COALESCE(model_path, ''), accuracy, precision, recall, f1,
			true_positives, false_positives, true_negatives, false_negatives, total
		 FROM evaluations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying evaluations: %w", err)
	}
	defer rows.Close()

	var out []EvaluationRecord
	for rows.Next() {
		var rec EvaluationRecord
		var at string
		m := &rec.Metrics
		if err := rows.Scan(&rec.ID, &at, &rec.ModelPath, &m.Accuracy, &m.Precision, &m.Recall, &m.F1,
			&m.TruePositives, &m.FalsePositives, &m.TrueNegatives, &m.FalseNegatives, &m.Total); err != nil {
			return nil, fmt.Errorf("scanning evaluation: %w", err)
		}
		rec.EvaluatedAt = parseTime(at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
