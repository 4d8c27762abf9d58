// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/classifier"
	"github.com/pdiddy/fieldmap/internal/features"
	"github.com/pdiddy/fieldmap/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match <source-field> <target-field>",
	Short: "Score whether two field names denote the same field",
	Long: `Match loads the trained model (or creates a fresh one when none is
saved) and prints the match confidence for a source/target pair together
with the similarity breakdown.

The precomputed similarity feature comes from --similarity, or from the
configured embedding service when the flag is not set. Without an
embedding service the naming rules supply it.`,
	Args: cobra.ExactArgs(2),
	RunE: runMatch,
}

// matchReport is the --json output of match.
type matchReport struct {
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Similarity float64                `json:"precomputed_similarity"`
	Features   map[string]float64     `json:"features"`
	Prediction types.MatchPrediction  `json:"prediction"`
	Strategy   types.MatchingStrategy `json:"matching_strategy"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	source, target := args[0], args[1]

	svc, err := newService(nil)
	if err != nil {
		return err
	}
	state := svc.Initialize()
	appLog.Debug("classifier ready", zap.Stringer("state", state))

	sim, _ := cmd.Flags().GetFloat64("similarity")
	if !cmd.Flags().Changed("similarity") {
		if sim, err = svc.Similarity(ctx, source, target); err != nil {
			appLog.Warn("similarity unavailable, using 0", zap.Error(err))
			sim = 0
		}
	}
	strategy := svc.Strategy(source, target, sim)

	pred, err := svc.Match(ctx, source, target, sim)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		vec := features.Extract(types.FieldPair{SourceFieldName: source, TargetFieldName: target, PrecomputedSimilarity: sim})
		named := make(map[string]float64, types.FeatureCount)
		for i, name := range types.FeatureNames {
			named[name] = vec[i]
		}
		return printJSON(matchReport{
			Source:     source,
			Target:     target,
			Similarity: sim,
			Features:   named,
			Prediction: pred,
			Strategy:   strategy,
		})
	}

	verdict := "no match"
	if pred.ShouldMatch {
		verdict = "match"
	}
	fmt.Fprintf(os.Stdout, "%s -> %s: %s (confidence %.3f, %s)\n", source, target, verdict, pred.Confidence, strategy)
	fmt.Fprintf(os.Stdout, "  text        %.3f\n", pred.Breakdown.TextSimilarity)
	fmt.Fprintf(os.Stdout, "  semantic    %.3f\n", pred.Breakdown.SemanticSimilarity)
	fmt.Fprintf(os.Stdout, "  type        %.3f\n", pred.Breakdown.TypeSimilarity)
	fmt.Fprintf(os.Stdout, "  positional  %.3f\n", pred.Breakdown.PositionalSimilarity)
	if state != classifier.StateLoaded {
		fmt.Fprintln(os.Stdout, "\nnote: no trained model was loaded; scores come from untrained weights")
	}
	return nil
}

func init() {
	matchCmd.Flags().Float64("similarity", 0, "precomputed similarity in [0,1] (default: ask the embedding service, else the naming rules)")
	matchCmd.Flags().Bool("json", false, "output the prediction and all features as JSON")

	rootCmd.AddCommand(matchCmd)
}
