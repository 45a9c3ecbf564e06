// Package reporter renders reconciliation reports for people and programs.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: the report structure, filtered by configuration
//   - CSV: one row per match result, for spreadsheet review
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(reporter.DefaultReportConfig())
//	err = generator.GenerateReport(report, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"bank-ledger-reconciler/internal/models"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	IncludeMatched       bool `json:"include_matched" mapstructure:"include_matched"`
	IncludeDiscrepancies bool `json:"include_discrepancies" mapstructure:"include_discrepancies"`
	IncludeWarnings      bool `json:"include_warnings" mapstructure:"include_warnings"`

	// Console formatting options
	TableMaxWidth int `json:"table_max_width" mapstructure:"table_max_width"`
	MaxListItems  int `json:"max_list_items" mapstructure:"max_list_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers" mapstructure:"csv_headers"`

	SortByAmount bool `json:"sort_by_amount" mapstructure:"sort_by_amount"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:               FormatConsole,
		IncludeMatched:       false,
		IncludeDiscrepancies: true,
		IncludeWarnings:      true,
		TableMaxWidth:        120,
		MaxListItems:         50,
		CSVDelimiter:         ',',
		CSVHeaders:           true,
		SortByAmount:         false,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}
	if c.MaxListItems < 0 {
		return fmt.Errorf("max list items cannot be negative, got %d", c.MaxListItems)
	}
	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' || c.CSVDelimiter == '\r' {
		return fmt.Errorf("invalid CSV delimiter: %q", c.CSVDelimiter)
	}
	return nil
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders the report in the configured format. The report
// itself is never modified.
func (rg *ReportGenerator) GenerateReport(report *models.ReconciliationReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("reconciliation report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// consoleWriter remembers the first write error so section printers can
// stay linear
type consoleWriter struct {
	w   io.Writer
	err error
}

func (cw *consoleWriter) printf(format string, args ...interface{}) {
	if cw.err != nil {
		return
	}
	_, cw.err = fmt.Fprintf(cw.w, format, args...)
}

func (rg *ReportGenerator) generateConsoleReport(report *models.ReconciliationReport, writer io.Writer) error {
	cw := &consoleWriter{w: writer}

	cw.printf("RECONCILIATION REPORT\n")
	cw.printf("Report ID: %s\n", report.ID)
	cw.printf("Profile:   %s\n", report.ProfileID)
	cw.printf("Period:    %s\n", formatPeriod(report.Period))
	cw.printf("Generated: %s\n\n", report.CreatedAt.Format(time.RFC3339))

	cw.printf("=== SUMMARY ===\n")
	rg.printSummary(report, cw)
	cw.printf("\n")

	cw.printf("=== TOTALS ===\n")
	rg.printTotals(report, cw)
	cw.printf("\n")

	if rg.config.IncludeDiscrepancies && len(report.Discrepancies) > 0 {
		cw.printf("=== DISCREPANCIES ===\n")
		rg.printDiscrepancies(report.Discrepancies, cw)
	}

	if rg.config.IncludeMatched && len(report.Matched) > 0 {
		cw.printf("=== MATCHED ===\n")
		rg.printResultList(report.Matched, cw)
		cw.printf("\n")
	}

	if rg.config.IncludeWarnings && len(report.Warnings) > 0 {
		cw.printf("=== WARNINGS ===\n")
		for _, w := range report.Warnings {
			cw.printf("  - %s\n", rg.truncate(w, 4))
		}
	}

	return cw.err
}

func (rg *ReportGenerator) generateJSONReport(report *models.ReconciliationReport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(rg.filterReportForOutput(report))
}

var csvHeaders = []string{
	"Kind",
	"Currency",
	"Statement_ID",
	"Statement_Date",
	"Statement_Amount",
	"Statement_Direction",
	"Statement_Counterparty",
	"Message_ID",
	"Message_Date",
	"Message_Amount",
	"Message_Direction",
	"Message_Counterparty",
	"Score",
	"Confidence",
	"Amount_Difference",
	"Day_Difference",
	"Reasons",
}

// generateCSVReport writes one row per match result. Matched rows come first
// when they are included.
func (rg *ReportGenerator) generateCSVReport(report *models.ReconciliationReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	var results []*models.MatchResult
	if rg.config.IncludeMatched {
		results = append(results, rg.ordered(report.Matched)...)
	}
	if rg.config.IncludeDiscrepancies {
		results = append(results, rg.ordered(report.Discrepancies)...)
	}

	for _, r := range results {
		if err := csvWriter.Write(csvRecord(r)); err != nil {
			return fmt.Errorf("failed to write %s record: %w", r.Kind, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func csvRecord(r *models.MatchResult) []string {
	record := make([]string, 0, len(csvHeaders))
	record = append(record, string(r.Kind), string(resultCurrency(r)))
	record = append(record, transactionColumns(r.Statement)...)
	record = append(record, transactionColumns(r.Message)...)

	if r.Candidate != nil {
		record = append(record,
			strconv.FormatFloat(r.Candidate.Score, 'f', 2, 64),
			string(r.Candidate.Confidence),
		)
	} else {
		record = append(record, "", "")
	}

	if r.Statement != nil && r.Message != nil {
		record = append(record, r.AmountDifference.StringFixed(2), strconv.Itoa(r.DayDifference))
	} else {
		record = append(record, "", "")
	}

	var reasons string
	if r.Candidate != nil {
		reasons = strings.Join(r.Candidate.Reasons, "; ")
	}
	return append(record, reasons)
}

func transactionColumns(t *models.CanonicalTransaction) []string {
	if t == nil {
		return []string{"", "", "", "", ""}
	}
	return []string{
		t.ID,
		t.OccurredAt.Format("2006-01-02 15:04:05"),
		t.Amount.StringFixed(2),
		string(t.Direction),
		t.CounterpartyNormalized,
	}
}

// Helper methods for console output formatting

func (rg *ReportGenerator) printSummary(report *models.ReconciliationReport, cw *consoleWriter) {
	total := 0
	for _, kind := range models.AllResultKinds {
		total += report.Counts[kind]
	}

	cw.printf("Statement transactions: %d\n", report.StatementCount)
	cw.printf("Message transactions:   %d\n", report.MessageCount)
	cw.printf("\nResults:\n")
	for _, kind := range models.AllResultKinds {
		label := kindLabel(kind) + ":"
		cw.printf("  %-17s %d (%.1f%%)\n", label, report.Counts[kind], rg.calculatePercentage(report.Counts[kind], total))
	}
}

func (rg *ReportGenerator) printTotals(report *models.ReconciliationReport, cw *consoleWriter) {
	currencies := reportCurrencies(report)
	if len(currencies) == 0 {
		cw.printf("No transactions\n")
		return
	}

	cw.printf("%-8s %18s %18s %18s\n", "Currency", "Statement", "Messages", "Difference")
	for _, c := range currencies {
		stmt := report.StatementTotal[c]
		msg := report.MessageTotal[c]
		cw.printf("%-8s %18s %18s %18s\n", c, stmt.StringFixed(2), msg.StringFixed(2), stmt.Sub(msg).StringFixed(2))
	}
}

func (rg *ReportGenerator) printDiscrepancies(discrepancies []*models.MatchResult, cw *consoleWriter) {
	cw.printf("Total Discrepancies Found: %d\n\n", len(discrepancies))

	groups := make(map[models.ResultKind][]*models.MatchResult)
	for _, d := range discrepancies {
		groups[d.Kind] = append(groups[d.Kind], d)
	}

	for _, kind := range models.AllResultKinds {
		results := groups[kind]
		if len(results) == 0 {
			continue
		}
		cw.printf("%s (%d):\n", strings.ToUpper(kindLabel(kind)), len(results))
		rg.printResultList(results, cw)
		cw.printf("\n")
	}
}

func (rg *ReportGenerator) printResultList(results []*models.MatchResult, cw *consoleWriter) {
	results = rg.ordered(results)
	limit := rg.config.MaxListItems

	for i, r := range results {
		if limit > 0 && i >= limit {
			cw.printf("  ... and %d more\n", len(results)-limit)
			break
		}

		cw.printf("  %d. %s\n", i+1, rg.describeResult(r))
		if r.Statement != nil && r.Message != nil && (r.Kind != models.ResultMatched || !r.AmountDifference.IsZero()) {
			cw.printf("     amount difference %s, %d day(s) apart\n", r.AmountDifference.StringFixed(2), r.DayDifference)
		}
		if r.Candidate != nil && len(r.Candidate.Reasons) > 0 {
			cw.printf("     %s\n", rg.truncate(strings.Join(r.Candidate.Reasons, "; "), 5))
		}
	}
}

func (rg *ReportGenerator) describeResult(r *models.MatchResult) string {
	var parts []string
	if r.Statement != nil {
		parts = append(parts, "statement "+describeTransaction(r.Statement))
	}
	if r.Message != nil {
		parts = append(parts, "message "+describeTransaction(r.Message))
	}
	line := strings.Join(parts, " | ")
	if r.Candidate != nil {
		line += fmt.Sprintf(" [score %.1f, %s]", r.Candidate.Score, r.Candidate.Confidence)
	}
	return rg.truncate(line, 5)
}

func describeTransaction(t *models.CanonicalTransaction) string {
	return fmt.Sprintf("%s %s %s %s %s", t.Day(), t.Direction, t.Amount.StringFixed(2), t.Currency, t.CounterpartyNormalized)
}

// Helper methods

// ordered returns the results sorted by descending amount when configured.
// The input slice is left untouched.
func (rg *ReportGenerator) ordered(results []*models.MatchResult) []*models.MatchResult {
	if !rg.config.SortByAmount {
		return results
	}
	sorted := append([]*models.MatchResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return resultAmount(sorted[i]).GreaterThan(resultAmount(sorted[j]))
	})
	return sorted
}

func (rg *ReportGenerator) truncate(s string, indent int) string {
	width := rg.config.TableMaxWidth - indent
	if width <= 3 || len([]rune(s)) <= width {
		return s
	}
	return string([]rune(s)[:width-3]) + "..."
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

func (rg *ReportGenerator) filterReportForOutput(report *models.ReconciliationReport) map[string]interface{} {
	output := map[string]interface{}{
		"id":              report.ID,
		"profile_id":      report.ProfileID,
		"period":          report.Period,
		"created_at":      report.CreatedAt,
		"statement_count": report.StatementCount,
		"message_count":   report.MessageCount,
		"counts":          report.Counts,
		"statement_total": report.StatementTotal,
		"message_total":   report.MessageTotal,
	}

	if rg.config.IncludeMatched && report.Matched != nil {
		output["matched"] = rg.ordered(report.Matched)
	}
	if rg.config.IncludeDiscrepancies {
		output["discrepancies"] = rg.ordered(report.Discrepancies)
	}
	if rg.config.IncludeWarnings && len(report.Warnings) > 0 {
		output["warnings"] = report.Warnings
	}

	return output
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func kindLabel(kind models.ResultKind) string {
	return strings.ReplaceAll(string(kind), "_", " ")
}

func formatPeriod(p models.Period) string {
	if p.End.IsZero() {
		return "(empty)"
	}
	return p.String()
}

func resultCurrency(r *models.MatchResult) models.Currency {
	if r.Statement != nil {
		return r.Statement.Currency
	}
	if r.Message != nil {
		return r.Message.Currency
	}
	return ""
}

func resultAmount(r *models.MatchResult) decimal.Decimal {
	if r.Statement != nil {
		return r.Statement.Amount
	}
	if r.Message != nil {
		return r.Message.Amount
	}
	return decimal.Zero
}

func reportCurrencies(report *models.ReconciliationReport) []models.Currency {
	seen := make(map[models.Currency]bool)
	var currencies []models.Currency
	for _, totals := range []map[models.Currency]decimal.Decimal{report.StatementTotal, report.MessageTotal} {
		for c := range totals {
			if !seen[c] {
				seen[c] = true
				currencies = append(currencies, c)
			}
		}
	}
	sort.Slice(currencies, func(i, j int) bool { return currencies[i] < currencies[j] })
	return currencies
}
