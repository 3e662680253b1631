package importer

import (
	"path/filepath"
	"strings"
	"time"
)

// Record is one job row of an import file
type Record struct {
	Title       string `csv:"title" parquet:"title" json:"title"`
	Description string `csv:"description" parquet:"description" json:"description"`
}

// ProcessingResult represents the result of importing a file
type ProcessingResult struct {
	TotalRecords  int64         `json:"total_records"`
	Inserted      int64         `json:"inserted"`
	Updated       int64         `json:"updated"`
	Invalid       int64         `json:"invalid"`
	Duplicates    int64         `json:"duplicates"`
	Failed        int64         `json:"failed"`
	Batches       int           `json:"batches"`
	Duration      time.Duration `json:"duration"`
	EmbeddingTime time.Duration `json:"embedding_time"`
	DatabaseTime  time.Duration `json:"database_time"`
	Errors        []string      `json:"errors,omitempty"`
}

// Config contains import pipeline configuration
type Config struct {
	BatchSize            int  `yaml:"batch_size" mapstructure:"batch_size"`
	SkipDuplicates       bool `yaml:"skip_duplicates" mapstructure:"skip_duplicates"`
	ValidateData         bool `yaml:"validate_data" mapstructure:"validate_data"`
	MaxDescriptionLength int  `yaml:"max_description_length" mapstructure:"max_description_length"`
	// WarmEmbeddings embeds every imported description so a cached
	// embedding service has them ready for scoring.
	WarmEmbeddings bool `yaml:"warm_embeddings" mapstructure:"warm_embeddings"`
}

// DefaultConfig returns the import defaults
func DefaultConfig() Config {
	return Config{
		BatchSize:            100,
		SkipDuplicates:       true,
		ValidateData:         true,
		MaxDescriptionLength: 10000,
	}
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension. Unknown extensions are
// read as CSV.
func DetectFileFormat(filename string) FileFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".parquet":
		return FormatParquet
	case ".json", ".jsonl", ".ndjson":
		return FormatJSON
	default:
		return FormatCSV
	}
}
