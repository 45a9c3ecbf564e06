package config

import (
	"fmt"
	"strings"

	"bank-ledger-reconciler/internal/canonical"
	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/internal/parsers"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/internal/reporter"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Configuration keys shared by every command
const (
	KeyStoragePath      = "storage.path"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyLogFile          = "log.file"
	KeyMatchingPreset   = "matching.preset"
	KeyMinScore         = "matching.min_candidate_score"
	KeyHighConfidence   = "matching.high_confidence"
	KeyMediumConfidence = "matching.medium_confidence"
	KeyStatementLayout  = "statement.layout"
	KeyTimezone         = "statement.timezone"
	KeyAliasFile        = "merchants.alias_file"
	KeyWorkers          = "pipeline.workers"
)

// DefaultStoragePath is used when no storage path is configured
const DefaultStoragePath = "ledger.db"

// SetDefaults registers the default value of every configuration key
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStoragePath, DefaultStoragePath)
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
	v.SetDefault(KeyMatchingPreset, "default")
	v.SetDefault(KeyStatementLayout, "standard")
	v.SetDefault(KeyTimezone, normalizer.DefaultLocation)
	v.SetDefault(KeyWorkers, reconciler.DefaultConfig().MaxConcurrentDocuments)
}

// CreateLoggerConfig builds the logger configuration. A log file switches
// the output to that file.
func CreateLoggerConfig(level, format, file string) (*logger.Config, error) {
	config := logger.DefaultConfig()
	if level != "" {
		config.Level = logger.Level(strings.ToLower(level))
	}
	if format != "" {
		config.Format = logger.Format(strings.ToLower(format))
	}
	if file != "" {
		config.Output = logger.FileOutput
		config.File = file
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetMatchingPreset returns a matching configuration by preset name
func GetMatchingPreset(name string) (*matcher.MatchingConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return matcher.DefaultMatchingConfig(), nil
	case "strict":
		return matcher.StrictMatchingConfig(), nil
	case "relaxed":
		return matcher.RelaxedMatchingConfig(), nil
	default:
		return nil, fmt.Errorf("unknown matching preset %q (available: %s)", name, strings.Join(ListMatchingPresets(), ", "))
	}
}

// ListMatchingPresets returns the names of the predefined matching presets
func ListMatchingPresets() []string {
	return []string{"default", "strict", "relaxed"}
}

// CreateMatchingConfig starts from a preset and applies CLI overrides.
// Negative tolerances mean "keep the preset value".
func CreateMatchingConfig(preset string, dateTolerance int, amountTolerance float64) (*matcher.MatchingConfig, error) {
	config, err := GetMatchingPreset(preset)
	if err != nil {
		return nil, err
	}

	if dateTolerance >= 0 {
		config.DateToleranceDays = dateTolerance
	}
	if amountTolerance >= 0 {
		config.AmountTolerance = decimal.NewFromFloat(amountTolerance)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}
	return config, nil
}

// ApplyMatchingOverrides copies score thresholds set in the configuration
// file onto config
func ApplyMatchingOverrides(v *viper.Viper, config *matcher.MatchingConfig) error {
	if v.IsSet(KeyMinScore) {
		config.MinCandidateScore = v.GetFloat64(KeyMinScore)
	}
	if v.IsSet(KeyHighConfidence) {
		config.HighConfidence = v.GetFloat64(KeyHighConfidence)
	}
	if v.IsSet(KeyMediumConfidence) {
		config.MediumConfidence = v.GetFloat64(KeyMediumConfidence)
	}
	return config.Validate()
}

// CreateStatementLayout returns a validated predefined layout
func CreateStatementLayout(name string) (*parsers.StatementLayout, error) {
	layout := parsers.GetStatementLayout(name)
	if layout == nil {
		return nil, fmt.Errorf("unknown statement layout %q (available: %s)", name, strings.Join(parsers.ListAvailableLayouts(), ", "))
	}
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statement layout %s: %w", name, err)
	}
	return layout, nil
}

// CreateCanonicalizer builds the canonicalization layer. Aliases from the
// optional YAML file extend the built-in table.
func CreateCanonicalizer(aliasFile string, layout *parsers.StatementLayout) (*canonical.Canonicalizer, error) {
	merchants := canonical.NewMerchantNormalizer(canonical.DefaultAliases())
	if aliasFile != "" {
		aliases, err := canonical.LoadAliasFile(aliasFile)
		if err != nil {
			return nil, err
		}
		merchants.AddAliases(aliases)
	}
	return canonical.New(merchants, layout.DefaultCurrency), nil
}

// CreatePipelineConfig creates the batch pipeline configuration
func CreatePipelineConfig(showProgress bool, workers int, includeMatched bool) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()

	config.ProgressReporting = showProgress
	config.IncludeMatched = includeMatched
	if workers > 0 {
		config.MaxConcurrentDocuments = workers
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	return config, nil
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, includeMatched bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(format))
	config.IncludeMatched = includeMatched

	switch config.Format {
	case reporter.FormatConsole:
		config.IncludeWarnings = true
	case reporter.FormatJSON:
		config.IncludeWarnings = true
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.SortByAmount = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
