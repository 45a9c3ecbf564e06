package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bank-ledger-reconciler/cmd/reconciler/config"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/reporter"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reconcileOptions are the resolved reconcile flags, with config file and
// environment overrides applied
type reconcileOptions struct {
	Profile         string
	Statements      []string
	Messages        []string
	OutputFormat    string
	OutputFile      string
	Preset          string
	DateTolerance   int
	AmountTolerance float64
	IncludeMatched  bool
	ShowProgress    bool
}

var reconcileOpts *reconcileOptions

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile statements against notification emails",
	Long: `Reconcile parses the given statements and emails, pairs every statement
transaction with at most one email transaction, and reports matches,
amount and date mismatches, and transactions seen on one side only.

Documents are read from the given paths, not from the ledger. Each run
stores a new report in the ledger; earlier reports are never changed.

Examples:
  # Basic reconciliation
  reconciler reconcile --profile alice --statement statement-2025-10.json --messages inbox/

  # Relaxed matching with a wider date window
  reconciler reconcile --profile alice --statement stmt.json --messages inbox/ \
    --preset relaxed --date-tolerance 10

  # CSV report including matched pairs
  reconciler reconcile --profile alice --statement stmt.json --messages inbox/ \
    --output-format csv --output-file report.csv --include-matched`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringP("profile", "p", "", "profile to reconcile (required)")
	reconcileCmd.Flags().StringSliceP("statement", "s", []string{}, "statement file(s) (required)")
	reconcileCmd.Flags().StringSliceP("messages", "m", []string{}, "email directory or files (required)")

	// Output flags
	reconcileCmd.Flags().StringP("output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringP("output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().Bool("include-matched", false, "list matched pairs, not only discrepancies")

	// Matching configuration flags
	reconcileCmd.Flags().String("preset", "default", "matching preset: default, strict, relaxed")
	reconcileCmd.Flags().IntP("date-tolerance", "d", -1, "date tolerance in days (default: preset value)")
	reconcileCmd.Flags().Float64P("amount-tolerance", "a", -1, "absolute amount tolerance (default: preset value)")

	reconcileCmd.Flags().Bool("progress", false, "log progress while processing")

	reconcileCmd.MarkFlagRequired("profile")
	reconcileCmd.MarkFlagRequired("statement")
	reconcileCmd.MarkFlagRequired("messages")

	viper.BindPFlag("reconcile.profile", reconcileCmd.Flags().Lookup("profile"))
	viper.BindPFlag("reconcile.statement", reconcileCmd.Flags().Lookup("statement"))
	viper.BindPFlag("reconcile.messages", reconcileCmd.Flags().Lookup("messages"))
	viper.BindPFlag("output.format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output.file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("output.include_matched", reconcileCmd.Flags().Lookup("include-matched"))
	viper.BindPFlag(config.KeyMatchingPreset, reconcileCmd.Flags().Lookup("preset"))
	viper.BindPFlag("matching.date_tolerance_days", reconcileCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("matching.amount_tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("progress", reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	opts, err := loadReconcileOptions(viper.GetViper())
	if err != nil {
		return err
	}
	reconcileOpts = opts
	return nil
}

// loadReconcileOptions reads and validates the reconcile settings
func loadReconcileOptions(v *viper.Viper) (*reconcileOptions, error) {
	opts := &reconcileOptions{
		Profile:         v.GetString("reconcile.profile"),
		Statements:      v.GetStringSlice("reconcile.statement"),
		Messages:        v.GetStringSlice("reconcile.messages"),
		OutputFormat:    v.GetString("output.format"),
		OutputFile:      v.GetString("output.file"),
		Preset:          v.GetString(config.KeyMatchingPreset),
		DateTolerance:   v.GetInt("matching.date_tolerance_days"),
		AmountTolerance: v.GetFloat64("matching.amount_tolerance"),
		IncludeMatched:  v.GetBool("output.include_matched"),
		ShowProgress:    v.GetBool("progress"),
	}
	if !v.IsSet("matching.date_tolerance_days") {
		opts.DateTolerance = -1
	}
	if !v.IsSet("matching.amount_tolerance") {
		opts.AmountTolerance = -1
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = string(reporter.FormatConsole)
	}

	if strings.TrimSpace(opts.Profile) == "" {
		return nil, fmt.Errorf("profile is required")
	}
	if len(opts.Statements) == 0 {
		return nil, fmt.Errorf("at least one statement file is required")
	}
	if len(opts.Messages) == 0 {
		return nil, fmt.Errorf("a messages directory is required")
	}

	for i, file := range opts.Statements {
		if err := validateFileExists(file, fmt.Sprintf("statement file %d", i+1)); err != nil {
			return nil, err
		}
	}
	for _, path := range opts.Messages {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("messages path does not exist: %s", path)
		}
	}

	if !reporter.OutputFormat(opts.OutputFormat).IsValid() {
		return nil, fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", opts.OutputFormat)
	}

	if _, err := config.GetMatchingPreset(opts.Preset); err != nil {
		return nil, err
	}
	if opts.DateTolerance < -1 {
		return nil, fmt.Errorf("date tolerance cannot be negative")
	}
	if opts.AmountTolerance < 0 && opts.AmountTolerance != -1 {
		return nil, fmt.Errorf("amount tolerance cannot be negative")
	}

	if opts.OutputFile != "" {
		dir := filepath.Dir(opts.OutputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return nil, fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return opts, nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	opts := reconcileOpts

	matching, err := config.CreateMatchingConfig(opts.Preset, opts.DateTolerance, opts.AmountTolerance)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "matching", opts.Preset, err)
	}
	reportConfig, err := config.CreateReportConfig(opts.OutputFormat, opts.IncludeMatched)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output.format", opts.OutputFormat, err)
	}

	statements, statementNames, err := loadStatementFiles(opts.Statements)
	if err != nil {
		return err
	}
	messageFiles, err := collectMessageFiles(opts.Messages)
	if err != nil {
		return err
	}
	messages, messageNames, err := loadMessageFiles(messageFiles)
	if err != nil {
		return err
	}

	a, err := openApp(appOptions{ShowProgress: opts.ShowProgress, IncludeMatched: opts.IncludeMatched, Matching: matching})
	if err != nil {
		return err
	}
	defer a.Close()

	op := logger.NewOperationLogger("reconcile", a.logger.WithField("profile", opts.Profile))
	verbose := viper.GetBool("verbose")
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Reconciling %d statement(s) and %d email(s) for %s\n", len(statements), len(messages), opts.Profile)
		fmt.Fprintf(cmd.ErrOrStderr(), "Matching: %s\n", matching)
	}

	op.Step("collect")
	stmtResult := a.pipeline.CollectStatements(ctx, opts.Profile, statements)
	msgResult := a.pipeline.CollectMessages(ctx, opts.Profile, messages)
	if verbose {
		printBatch(cmd.ErrOrStderr(), "Statements", statementNames, stmtResult)
		printBatch(cmd.ErrOrStderr(), "Messages", messageNames, msgResult)
	}

	op.Step("match")
	report, err := a.pipeline.Reconcile(ctx, opts.Profile, stmtResult, msgResult)
	if err != nil {
		op.Error(err, "Reconciliation failed")
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, a.logger)
	if err != nil {
		return err
	}

	var output io.Writer = cmd.OutOrStdout()
	if opts.OutputFile != "" {
		file, err := os.Create(opts.OutputFile)
		if err != nil {
			return fileError(opts.OutputFile, err)
		}
		defer file.Close()
		output = file
	}

	render := func() error { return generator.GenerateReportSafely(report, output) }
	if err := logger.TimedOperation("render_report", a.logger, render); err != nil {
		return err
	}
	op.Success("Reconciliation completed")

	if verbose {
		printRunSummary(cmd.ErrOrStderr(), report)
	}
	return nil
}

func printRunSummary(w io.Writer, report *models.ReconciliationReport) {
	fmt.Fprintf(w, "\nReport %s stored.\n", report.ID)
	fmt.Fprintf(w, "Processed %d statement and %d email transactions.\n", report.StatementCount, report.MessageCount)
	fmt.Fprintf(w, "Found %d matches and %d discrepancies.\n", report.Counts[models.ResultMatched], len(report.Discrepancies))
	if len(report.Warnings) > 0 {
		fmt.Fprintf(w, "%d warning(s).\n", len(report.Warnings))
	}
}
