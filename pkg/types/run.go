// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TrainingRun records one completed training invocation.
type TrainingRun struct {
	ID         string    `json:"id" yaml:"id"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Examples is the total number of labelled examples supplied; TrainCount
	// and ValidationCount are the sizes of the two subsets.
	Examples        int `json:"examples" yaml:"examples"`
	TrainCount      int `json:"train_count" yaml:"train_count"`
	ValidationCount int `json:"validation_count" yaml:"validation_count"`
	Epochs          int `json:"epochs" yaml:"epochs"`

	FinalLoss     float64 `json:"final_loss" yaml:"final_loss"`
	FinalAccuracy float64 `json:"final_accuracy" yaml:"final_accuracy"`
	FinalValLoss  float64 `json:"final_val_loss" yaml:"final_val_loss"`

	// ModelPath is where the trained weights were persisted.
	ModelPath string `json:"model_path" yaml:"model_path"`
}
