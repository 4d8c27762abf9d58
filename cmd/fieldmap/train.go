// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldmap/internal/dataset"
	"github.com/pdiddy/fieldmap/pkg/types"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the match classifier and save the model",
	Long: `Train fits the classifier to labelled examples and saves the model to
classifier.model_path. Examples come from --file (a dataset YAML file) or,
without it, from the dataset store.

The first 80% of the examples, in file or insertion order, train the
model; the rest are used for validation. Every run is recorded in the
dataset store.`,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	file, _ := cmd.Flags().GetString("file")
	fresh, _ := cmd.Flags().GetBool("fresh")
	quiet, _ := cmd.Flags().GetBool("quiet")

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var examples []types.TrainingExample
	if file != "" {
		examples, err = dataset.ReadYAMLFile(file)
	} else {
		examples, err = store.Examples(ctx)
	}
	if err != nil {
		return err
	}

	svc, err := newService(store)
	if err != nil {
		return err
	}
	if !fresh {
		svc.Initialize()
	}

	fmt.Fprintf(os.Stdout, "training on %d examples\n", len(examples))
	every := max(appConfig.Classifier.LogEvery, 1)
	result, err := svc.Train(ctx, examples, func(p types.EpochProgress) {
		if quiet || p.Epoch%every != 0 {
			return
		}
		fmt.Fprintf(os.Stdout, "epoch %3d/%d  loss %.4f  acc %.3f  prec %.3f  rec %.3f  val_loss %.4f  val_acc %.3f\n",
			p.Epoch, p.Epochs, p.Loss, p.Accuracy, p.Precision, p.Recall, p.ValLoss, p.ValAccuracy)
	})
	if err != nil {
		return err
	}

	final := result.Final()
	fmt.Fprintf(os.Stdout, "\ntrained: %d, validated: %d, final loss: %.4f, final val accuracy: %.3f\n",
		result.TrainCount, result.ValidationCount, final.Loss, final.ValAccuracy)
	fmt.Fprintf(os.Stdout, "model saved to %s\n", result.ModelPath)
	return nil
}

func init() {
	trainCmd.Flags().String("file", "", "dataset YAML file (default: the dataset store)")
	trainCmd.Flags().Bool("fresh", false, "start from new weights instead of the saved model")
	trainCmd.Flags().Bool("quiet", false, "suppress per-epoch progress")

	rootCmd.AddCommand(trainCmd)
}
