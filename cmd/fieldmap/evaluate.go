// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldmap/internal/classifier"
	"github.com/pdiddy/fieldmap/internal/dataset"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the saved model against a labelled holdout",
	Long: `Evaluate loads the saved model, predicts every example in the holdout
file and prints accuracy, precision, recall and F1. Results are recorded
in the dataset store.`,
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	file, _ := cmd.Flags().GetString("file")

	examples, err := dataset.ReadYAMLFile(file)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := newService(store)
	if err != nil {
		return err
	}
	if svc.Initialize() != classifier.StateLoaded {
		fmt.Fprintln(os.Stderr, "warning: no saved model found; evaluating untrained weights")
	}

	metrics, err := svc.Evaluate(ctx, examples)
	if err != nil {
		return err
	}
	rec, err := store.RecordEvaluation(ctx, appConfig.Classifier.ModelPath, metrics)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return printJSON(rec)
	}

	fmt.Fprintf(os.Stdout, "examples:  %d\n", metrics.Total)
	fmt.Fprintf(os.Stdout, "accuracy:  %.3f\n", metrics.Accuracy)
	fmt.Fprintf(os.Stdout, "precision: %.3f\n", metrics.Precision)
	fmt.Fprintf(os.Stdout, "recall:    %.3f\n", metrics.Recall)
	fmt.Fprintf(os.Stdout, "f1:        %.3f\n", metrics.F1)
	fmt.Fprintf(os.Stdout, "\ntp: %d, fp: %d, tn: %d, fn: %d\n",
		metrics.TruePositives, metrics.FalsePositives, metrics.TrueNegatives, metrics.FalseNegatives)
	return nil
}

func init() {
	evaluateCmd.Flags().String("file", "", "holdout dataset YAML file")
	evaluateCmd.Flags().Bool("json", false, "output the evaluation record as JSON")
	evaluateCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(evaluateCmd)
}
