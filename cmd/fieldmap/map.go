// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:   "map <fields.json>",
	Short: "Map extracted fields onto form fields",
	Long: `Map reads extracted fields (legacy or scored JSON), scores every
extracted field against every --form-field and prints the best mapping
per form field. Each form field receives at most one extracted field;
when several compete, the highest confidence wins.`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func runMap(cmd *cobra.Command, args []string) error {
	formFields, _ := cmd.Flags().GetStringSlice("form-field")
	if len(formFields) == 0 {
		return fmt.Errorf("at least one --form-field is required")
	}

	set, err := decodeFields(args[0])
	if err != nil {
		return err
	}

	svc, err := newService(nil)
	if err != nil {
		return err
	}
	svc.Initialize()

	mappings, err := svc.MapFields(context.Background(), set, formFields)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return printJSON(mappings)
	}

	if len(mappings) == 0 {
		fmt.Println("No mappings above the confidence threshold.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-24s  %6s  %-8s  %-17s  %5s  %s\n",
		"Source", "Target", "Conf", "Type", "Strategy", "Valid", "Value")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, m := range mappings {
		fmt.Fprintf(os.Stdout, "%-24s  %-24s  %6.3f  %-8s  %-17s  %5t  %v\n",
			m.SourceField, m.TargetField, m.Confidence, m.FieldType, m.Strategy, m.ValueValid, m.Value)
	}
	fmt.Fprintf(os.Stdout, "\n%d of %d form fields mapped\n", len(mappings), len(formFields))
	return nil
}

func init() {
	mapCmd.Flags().StringSlice("form-field", nil, "form field name (repeatable or comma-separated)")
	mapCmd.Flags().Bool("json", false, "output mappings as JSON")

	rootCmd.AddCommand(mapCmd)
}
