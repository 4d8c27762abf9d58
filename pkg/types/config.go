package types

import "time"

// ClassifierConfig holds settings for the match classifier.
type ClassifierConfig struct {
	// ModelPath is where the trained model artifact is read and written
	// (default "models/field-mapping/model.json").
	ModelPath string `json:"model_path" yaml:"model_path" mapstructure:"model_path"`

	// Epochs is the number of passes over the training subset (default 100).
	Epochs int `json:"epochs" yaml:"epochs" mapstructure:"epochs"`

	// BatchSize is the mini-batch size (default 32).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// LearningRate is the Adam step size (default 0.001).
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate" mapstructure:"learning_rate"`

	// TrainFraction is the leading share of examples used for training; the
	// remainder is the validation subset (default 0.8).
	TrainFraction float64 `json:"train_fraction" yaml:"train_fraction" mapstructure:"train_fraction"`

	// LogEvery controls how often epoch progress is logged (default 10).
	LogEvery int `json:"log_every" yaml:"log_every" mapstructure:"log_every"`

	// Seed seeds weight initialization, dropout masks and batch order.
	Seed uint64 `json:"seed" yaml:"seed" mapstructure:"seed"`
}

// MappingConfig holds settings for batch field mapping.
type MappingConfig struct {
	// MinConfidence is the lowest classifier confidence that still yields a
	// mapping candidate (default 0.5).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence" mapstructure:"min_confidence"`

	// MaxSuggestions caps the candidates kept per source field (default 5).
	MaxSuggestions int `json:"max_suggestions" yaml:"max_suggestions" mapstructure:"max_suggestions"`

	// DefaultConfidence and DefaultSource are applied when legacy extracted
	// fields are normalized into scored format (defaults 0 and "pattern").
	DefaultConfidence int              `json:"default_confidence" yaml:"default_confidence" mapstructure:"default_confidence"`
	DefaultSource     ExtractionSource `json:"default_source" yaml:"default_source" mapstructure:"default_source"`

	// LowConfidenceThreshold flags extracted fields for review (default 70).
	LowConfidenceThreshold int `json:"low_confidence_threshold" yaml:"low_confidence_threshold" mapstructure:"low_confidence_threshold"`
}

// DatasetConfig holds settings for the training example store.
type DatasetConfig struct {
	// Dir contains the SQLite database (default "data").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// EmbeddingConfig configures the optional embedding service that supplies
// precomputed similarity. An empty Endpoint disables it.
type EmbeddingConfig struct {
	// Endpoint is the base URL of an OpenAI-compatible /v1/embeddings API.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout is the HTTP request timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of retries on HTTP 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// Config groups all stage configurations.
type Config struct {
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier" mapstructure:"classifier"`
	Mapping    MappingConfig    `json:"mapping" yaml:"mapping" mapstructure:"mapping"`
	Dataset    DatasetConfig    `json:"dataset" yaml:"dataset" mapstructure:"dataset"`
	Embedding  EmbeddingConfig  `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the built-in defaults for every stage.
func DefaultConfig() Config {
	return Config{
		Classifier: ClassifierConfig{
			ModelPath:     "models/field-mapping/model.json",
			Epochs:        100,
			BatchSize:     32,
			LearningRate:  0.001,
			TrainFraction: 0.8,
			LogEvery:      10,
			Seed:          42,
		},
		Mapping: MappingConfig{
			MinConfidence:          MatchThreshold,
			MaxSuggestions:         5,
			DefaultConfidence:      0,
			DefaultSource:          SourcePattern,
			LowConfidenceThreshold: 70,
		},
		Dataset: DatasetConfig{Dir: "data"},
		Embedding: EmbeddingConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Log: LogConfig{Level: "info", Format: "console", Output: "stderr"},
	}
}
