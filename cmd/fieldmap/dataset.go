// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Manage labelled examples and training history",
	Long: `Dataset manages the SQLite store under dataset.dir that holds labelled
training examples, the record of training runs and evaluation results.`,
}

// --- import subcommand ---

var datasetImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Append labelled examples from a dataset YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		replace, _ := cmd.Flags().GetBool("replace")

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if replace {
			if err := store.ClearExamples(ctx); err != nil {
				return err
			}
		}
		n, err := store.ImportYAML(ctx, args[0])
		if err != nil {
			return err
		}
		total, err := store.CountExamples(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "imported %d examples (%d total)\n", n, total)
		return nil
	},
}

// --- export subcommand ---

var datasetExportCmd = &cobra.Command{
	Use:   "export <file.yaml>",
	Short: "Write every stored example to a dataset YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.ExportYAML(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "exported %d examples to %s\n", n, args[0])
		return nil
	},
}

// --- runs subcommand ---

var datasetRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded training runs and evaluations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		evals, err := store.Evaluations(ctx)
		if err != nil {
			return err
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(map[string]any{"runs": runs, "evaluations": evals})
		}

		if len(runs) == 0 {
			fmt.Println("No training runs recorded.")
		} else {
			fmt.Fprintf(os.Stdout, "%-36s  %-20s  %8s  %6s  %8s  %8s\n",
				"Run", "Started", "Examples", "Epochs", "Loss", "ValAcc")
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 96))
			for _, r := range runs {
				fmt.Fprintf(os.Stdout, "%-36s  %-20s  %8d  %6d  %8.4f  %8.3f\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Examples, r.Epochs, r.FinalLoss, r.FinalAccuracy)
			}
		}

		if len(evals) > 0 {
			fmt.Fprintf(os.Stdout, "\n%-36s  %-20s  %8s  %8s  %8s\n", "Evaluation", "At", "Total", "Accuracy", "F1")
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 88))
			for _, e := range evals {
				fmt.Fprintf(os.Stdout, "%-36s  %-20s  %8d  %8.3f  %8.3f\n",
					e.ID, e.EvaluatedAt.Format("2006-01-02 15:04:05"), e.Metrics.Total, e.Metrics.Accuracy, e.Metrics.F1)
			}
		}
		return nil
	},
}

func init() {
	datasetImportCmd.Flags().Bool("replace", false, "remove stored examples before importing")
	datasetRunsCmd.Flags().Bool("json", false, "output runs and evaluations as JSON")

	datasetCmd.AddCommand(datasetImportCmd)
	datasetCmd.AddCommand(datasetExportCmd)
	datasetCmd.AddCommand(datasetRunsCmd)

	rootCmd.AddCommand(datasetCmd)
}
