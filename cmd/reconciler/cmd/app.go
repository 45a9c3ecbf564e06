package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"bank-ledger-reconciler/cmd/reconciler/config"
	"bank-ledger-reconciler/internal/extractors"
	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/internal/parsers"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/internal/storage"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var _ reconciler.Sink = (*storage.SQLiteStore)(nil)

// appOptions are the per-command knobs on top of the configuration file
type appOptions struct {
	ShowProgress   bool
	IncludeMatched bool
	Matching       *matcher.MatchingConfig
}

// app bundles the ledger store and a pipeline wired to it
type app struct {
	store    *storage.SQLiteStore
	pipeline *reconciler.Pipeline
	logger   logger.Logger
}

func openApp(opts appOptions) (*app, error) {
	log := logger.GetGlobalLogger().WithComponent("cli")

	layout, err := config.CreateStatementLayout(viper.GetString(config.KeyStatementLayout))
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyStatementLayout, viper.GetString(config.KeyStatementLayout), err)
	}

	dates := normalizer.NewDateParser(viper.GetString(config.KeyTimezone))
	parser, err := parsers.NewStatementParser(layout, dates)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyStatementLayout, layout.Name, err)
	}

	canonicalizer, err := config.CreateCanonicalizer(viper.GetString(config.KeyAliasFile), layout)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyAliasFile, viper.GetString(config.KeyAliasFile), err)
	}

	matching := opts.Matching
	if matching == nil {
		if matching, err = config.GetMatchingPreset(viper.GetString(config.KeyMatchingPreset)); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyMatchingPreset, viper.GetString(config.KeyMatchingPreset), err)
		}
	}
	if err := config.ApplyMatchingOverrides(viper.GetViper(), matching); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", matching, err)
	}
	engine, err := matcher.NewEngine(matching)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", matching, err)
	}

	pipelineConfig, err := config.CreatePipelineConfig(opts.ShowProgress, viper.GetInt(config.KeyWorkers), opts.IncludeMatched)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyWorkers, viper.GetInt(config.KeyWorkers), err)
	}

	path := viper.GetString(config.KeyStoragePath)
	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}

	registry := extractors.NewRegistry(dates)
	registry.SetLogger(log)

	pipeline, err := reconciler.NewPipeline(reconciler.Dependencies{
		Store:         store,
		Parser:        parser,
		Registry:      registry,
		Canonicalizer: canonicalizer,
		Engine:        engine,
		Sink:          store,
	}, pipelineConfig)
	if err != nil {
		store.Close()
		return nil, err
	}

	log.WithFields(logger.Fields{
		"storage":  path,
		"layout":   layout.Name,
		"matching": matching.String(),
	}).Debug("Opened ledger")

	return &app{store: store, pipeline: pipeline, logger: log}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close ledger")
	}
}

// printBatch writes one line per document and returns the batch failures
// as a single error
func printBatch(w io.Writer, title string, names map[string]string, result *reconciler.BatchResult) error {
	fmt.Fprintf(w, "%s:\n", title)
	for _, o := range result.Outcomes {
		name := filepath.Base(names[o.DocumentID])
		switch {
		case o.Status == reconciler.OutcomeOK:
			fmt.Fprintf(w, "  %-18s %s (%d transactions", o.Status, name, len(o.Transactions))
			if o.RowsSkipped > 0 {
				fmt.Fprintf(w, ", %d rows skipped", o.RowsSkipped)
			}
			fmt.Fprintf(w, ")\n")
		case o.Err != nil && !o.IsNoOp():
			fmt.Fprintf(w, "  %-18s %s: %v\n", o.Status, name, o.Err)
		default:
			fmt.Fprintf(w, "  %-18s %s\n", o.Status, name)
		}
	}

	counts := result.Counts()
	fmt.Fprintf(w, "  total %d, ok %d", len(result.Outcomes), counts[reconciler.OutcomeOK])
	for _, status := range reconciler.AllOutcomeStatuses {
		if status != reconciler.OutcomeOK && counts[status] > 0 {
			fmt.Fprintf(w, ", %s %d", status, counts[status])
		}
	}
	fmt.Fprintf(w, "\n")

	if !result.HasFailures() {
		return nil
	}
	return errors.NewErrorSummary(result.Errors())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
