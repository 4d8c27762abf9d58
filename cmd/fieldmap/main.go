// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fieldmap CLI. It scores
// document-to-form field pairs, trains and evaluates the match classifier,
// manages the labelled dataset and maps extracted field sets onto forms.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/fieldmap/internal/logger"
	"github.com/pdiddy/fieldmap/internal/secrets"
	"github.com/pdiddy/fieldmap/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root command before any subcommand runs.
var (
	appConfig types.Config
	appLog    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "fieldmap",
	Short: "Map extracted document fields onto form fields",
	Long: `fieldmap decides whether a field extracted from a document and a field
on a target form denote the same thing. A small neural classifier scores
each pair from eight similarity features.

Use match to score a single pair, train and evaluate to manage the model,
dataset to manage labelled examples, fields to inspect extracted field
files and map to map a whole extraction onto a form.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}

		s, err := secrets.Load(".secrets/", log)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey, _ = s.Lookup(secrets.EmbeddingAPIKey, "FIELDMAP_EMBEDDING_API_KEY")
		}

		appConfig, appLog = cfg, log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = appLog.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fieldmap.yaml or ~/.config/fieldmap/fieldmap.yaml)")
	rootCmd.PersistentFlags().String("model", "", "model artifact path (overrides classifier.model_path)")
	rootCmd.PersistentFlags().String("data-dir", "", "dataset directory (overrides dataset.dir)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	viper.BindPFlag("classifier.model_path", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("dataset.dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fieldmap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fieldmap"))
		}
	}

	viper.SetEnvPrefix("FIELDMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so that environment
// variables and Unmarshal see the full key set.
func setDefaults() {
	d := types.DefaultConfig()

	viper.SetDefault("classifier.model_path", d.Classifier.ModelPath)
	viper.SetDefault("classifier.epochs", d.Classifier.Epochs)
	viper.SetDefault("classifier.batch_size", d.Classifier.BatchSize)
	viper.SetDefault("classifier.learning_rate", d.Classifier.LearningRate)
	viper.SetDefault("classifier.train_fraction", d.Classifier.TrainFraction)
	viper.SetDefault("classifier.log_every", d.Classifier.LogEvery)
	viper.SetDefault("classifier.seed", d.Classifier.Seed)

	viper.SetDefault("mapping.min_confidence", d.Mapping.MinConfidence)
	viper.SetDefault("mapping.max_suggestions", d.Mapping.MaxSuggestions)
	viper.SetDefault("mapping.default_confidence", d.Mapping.DefaultConfidence)
	viper.SetDefault("mapping.default_source", string(d.Mapping.DefaultSource))
	viper.SetDefault("mapping.low_confidence_threshold", d.Mapping.LowConfidenceThreshold)

	viper.SetDefault("dataset.dir", d.Dataset.Dir)

	viper.SetDefault("embedding.endpoint", d.Embedding.Endpoint)
	viper.SetDefault("embedding.model", d.Embedding.Model)
	viper.SetDefault("embedding.api_key", d.Embedding.APIKey)
	viper.SetDefault("embedding.timeout", d.Embedding.Timeout)
	viper.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("log.output", d.Log.Output)
}

func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
