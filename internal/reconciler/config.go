package reconciler

import (
	"fmt"
	"time"
)

// Config holds the pipeline options
type Config struct {
	// MaxConcurrentDocuments bounds the documents processed in parallel
	// within one batch
	MaxConcurrentDocuments int `mapstructure:"max_concurrent_documents"`

	// ProgressReporting logs periodic progress for large batches
	ProgressReporting bool          `mapstructure:"progress_reporting"`
	ProgressInterval  time.Duration `mapstructure:"progress_interval"`

	// IncludeMatched keeps matched pairs in the report, not only counts
	IncludeMatched bool `mapstructure:"include_matched"`
}

// DefaultConfig returns a default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentDocuments: 4,
		ProgressReporting:      false,
		ProgressInterval:       5 * time.Second,
		IncludeMatched:         true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MaxConcurrentDocuments <= 0 {
		return fmt.Errorf("max concurrent documents must be positive, got %d", c.MaxConcurrentDocuments)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval cannot be negative, got %s", c.ProgressInterval)
	}
	return nil
}
