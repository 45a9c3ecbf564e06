package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bank-ledger-reconciler/cmd/reconciler/config"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/reporter"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/spf13/cobra"
)

var (
	reportsProfile string
	reportsFormat  string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect stored reconciliation reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the reports of a profile, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runReportsList,
}

var reportsShowCmd = &cobra.Command{
	Use:   "show REPORT_ID",
	Short: "Render a stored report",
	Long: `Render a stored report. A unique prefix of the report ID is enough.

Examples:
  reconciler reports show --profile alice 3f2a
  reconciler reports show --profile alice 3f2a --output-format json`,
	Args: cobra.ExactArgs(1),
	RunE: runReportsShow,
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)

	reportsCmd.PersistentFlags().StringVarP(&reportsProfile, "profile", "p", "", "profile whose reports to read (required)")
	reportsCmd.MarkPersistentFlagRequired("profile")
	reportsShowCmd.Flags().StringVarP(&reportsFormat, "output-format", "f", "console", "output format: console, json, csv")
}

func runReportsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.store.ListReports(commandContext(cmd), reportsProfile)
	if err != nil {
		return err
	}
	printReportList(cmd.OutOrStdout(), reports)
	return nil
}

func printReportList(w io.Writer, reports []*models.ReconciliationReport) {
	if len(reports) == 0 {
		fmt.Fprintf(w, "No reports\n")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-22s  %7s  %13s\n", "ID", "CREATED", "PERIOD", "MATCHED", "DISCREPANCIES")
	for _, r := range reports {
		fmt.Fprintf(w, "%-36s  %-20s  %-22s  %7d  %13d\n",
			r.ID,
			r.CreatedAt.Format(time.RFC3339),
			r.Period.String(),
			r.Counts[models.ResultMatched],
			len(r.Discrepancies))
	}
}

func runReportsShow(cmd *cobra.Command, args []string) error {
	reportConfig, err := config.CreateReportConfig(reportsFormat, true)
	if err != nil {
		return err
	}

	a, err := openApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.store.ListReports(commandContext(cmd), reportsProfile)
	if err != nil {
		return err
	}
	report, err := findReport(reports, args[0])
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, a.logger)
	if err != nil {
		return err
	}
	return generator.GenerateReportSafely(report, cmd.OutOrStdout())
}

// findReport resolves a report by ID or unique ID prefix
func findReport(reports []*models.ReconciliationReport, id string) (*models.ReconciliationReport, error) {
	var found []*models.ReconciliationReport
	for _, r := range reports {
		if r.ID == id {
			return r, nil
		}
		if strings.HasPrefix(r.ID, id) {
			found = append(found, r)
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return nil, errors.New(errors.CategoryValidation, errors.CodeOutOfRange, fmt.Sprintf("no report %q for profile %s", id, reportsProfile)).
			WithSuggestion("Use 'reconciler reports list' to see the stored reports")
	default:
		return nil, errors.New(errors.CategoryValidation, errors.CodeOutOfRange, fmt.Sprintf("%d reports match %q", len(found), id)).
			WithSuggestion("Use a longer prefix")
	}
}
