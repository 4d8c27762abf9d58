// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fieldmap/internal/confidence"
	"github.com/pdiddy/fieldmap/pkg/types"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Inspect extracted field files (legacy or scored JSON)",
	Long: `Fields reads a JSON object of extracted fields, either in legacy form
(name to bare value) or scored form (name to {value, confidence, source}),
and normalizes, flattens or summarizes it. Use "-" to read standard input.`,
}

func decodeFields(path string) (types.ExtractedFieldSet, error) {
	data, err := readInput(path)
	if err != nil {
		return nil, err
	}
	return confidence.DecodeJSON(data)
}

var fieldsNormalizeCmd = &cobra.Command{
	Use:   "normalize <file.json>",
	Short: "Convert extracted fields to scored format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := decodeFields(args[0])
		if err != nil {
			return err
		}
		conf, _ := cmd.Flags().GetInt("default-confidence")
		src, _ := cmd.Flags().GetString("default-source")
		if !cmd.Flags().Changed("default-confidence") {
			conf = appConfig.Mapping.DefaultConfidence
		}
		if !cmd.Flags().Changed("default-source") {
			src = string(appConfig.Mapping.DefaultSource)
		}
		return printJSON(confidence.Normalize(set, conf, types.ExtractionSource(src)))
	},
}

var fieldsFlattenCmd = &cobra.Command{
	Use:   "flatten <file.json>",
	Short: "Convert extracted fields to plain name/value pairs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := decodeFields(args[0])
		if err != nil {
			return err
		}
		return printJSON(confidence.Flatten(set))
	},
}

// fieldStats is the --json output of fields stats.
type fieldStats struct {
	Format            string   `json:"format"`
	Fields            int      `json:"fields"`
	AverageConfidence int      `json:"average_confidence"`
	Threshold         int      `json:"threshold"`
	LowConfidence     []string `json:"low_confidence"`
}

var fieldsStatsCmd = &cobra.Command{
	Use:   "stats <file.json>",
	Short: "Summarize extraction confidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := decodeFields(args[0])
		if err != nil {
			return err
		}
		threshold, _ := cmd.Flags().GetInt("threshold")
		if !cmd.Flags().Changed("threshold") {
			threshold = appConfig.Mapping.LowConfidenceThreshold
		}

		stats := fieldStats{
			Format:            types.FormatLegacy.String(),
			Fields:            len(set),
			AverageConfidence: confidence.AverageConfidence(set),
			Threshold:         threshold,
			LowConfidence:     confidence.LowConfidenceFields(set, threshold),
		}
		if set.IsScored() {
			stats.Format = types.FormatScored.String()
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(stats)
		}
		fmt.Fprintf(os.Stdout, "format:             %s\n", stats.Format)
		fmt.Fprintf(os.Stdout, "fields:             %d\n", stats.Fields)
		fmt.Fprintf(os.Stdout, "average confidence: %d\n", stats.AverageConfidence)
		fmt.Fprintf(os.Stdout, "below %d:           %d\n", stats.Threshold, len(stats.LowConfidence))
		for _, name := range stats.LowConfidence {
			fmt.Fprintf(os.Stdout, "  %s (%d)\n", name, set[name].Confidence)
		}
		return nil
	},
}

func init() {
	fieldsNormalizeCmd.Flags().Int("default-confidence", 0, "confidence assigned to legacy values (default: mapping.default_confidence)")
	fieldsNormalizeCmd.Flags().String("default-source", "", "source assigned to legacy values: ocr, pattern, llm (default: mapping.default_source)")
	fieldsStatsCmd.Flags().Int("threshold", 0, "low-confidence threshold (default: mapping.low_confidence_threshold)")
	fieldsStatsCmd.Flags().Bool("json", false, "output statistics as JSON")

	fieldsCmd.AddCommand(fieldsNormalizeCmd)
	fieldsCmd.AddCommand(fieldsFlattenCmd)
	fieldsCmd.AddCommand(fieldsStatsCmd)

	rootCmd.AddCommand(fieldsCmd)
}
