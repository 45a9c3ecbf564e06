package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	ingestProfile  string
	ingestProgress bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest documents into the ledger",
	Long: `Ingest parses documents and persists their transactions for a profile.

A statement whose bytes were already ingested for the profile is reported as
already_processed and never parsed again. A message whose Message-Id was
already seen is reported as duplicate.`,
}

var ingestStatementCmd = &cobra.Command{
	Use:   "statement FILE...",
	Short: "Ingest monthly account statements",
	Long: `Ingest one or more account statements.

A statement file is either the JSON character dump of the statement PDF
({"pages": [{"chars": [...], "text": "..."}]}) or its extracted plain text.

Examples:
  reconciler ingest statement --profile alice statement-2025-10.json
  reconciler ingest statement --profile alice --progress statements/*.json`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateIngestFlags,
	RunE:    runIngestStatements,
}

var ingestMessagesCmd = &cobra.Command{
	Use:   "messages FILE|DIR...",
	Short: "Ingest bank notification emails",
	Long: `Ingest bank notification emails saved as RFC 822 files.

Directories are expanded to the .eml and .txt files they contain.
Informational and unrecognized emails are reported and skipped.

Examples:
  reconciler ingest messages --profile alice inbox/
  reconciler ingest messages --profile alice purchase-1.eml purchase-2.eml`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateIngestFlags,
	RunE:    runIngestMessages,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestStatementCmd, ingestMessagesCmd)

	ingestCmd.PersistentFlags().StringVarP(&ingestProfile, "profile", "p", "", "profile the documents belong to (required)")
	ingestCmd.PersistentFlags().BoolVar(&ingestProgress, "progress", false, "log progress while processing")
	ingestCmd.MarkPersistentFlagRequired("profile")
}

func validateIngestFlags(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(ingestProfile) == "" {
		return fmt.Errorf("profile is required")
	}
	return nil
}

func runIngestStatements(cmd *cobra.Command, args []string) error {
	docs, names, err := loadStatementFiles(args)
	if err != nil {
		return err
	}

	a, err := openApp(appOptions{ShowProgress: ingestProgress})
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.pipeline.IngestStatements(commandContext(cmd), ingestProfile, docs)
	if err := printBatch(cmd.OutOrStdout(), "Statements", names, result); err != nil {
		return err
	}

	for _, meta := range result.Metadata() {
		if !meta.BalanceCheck() {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: balances of %s could not be verified\n", names[meta.DocumentID])
		}
	}
	return nil
}

func runIngestMessages(cmd *cobra.Command, args []string) error {
	files, err := collectMessageFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no message files found in %s", strings.Join(args, ", "))
	}

	docs, names, err := loadMessageFiles(files)
	if err != nil {
		return err
	}

	a, err := openApp(appOptions{ShowProgress: ingestProgress})
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.pipeline.IngestMessages(commandContext(cmd), ingestProfile, docs)
	return printBatch(cmd.OutOrStdout(), "Messages", names, result)
}
