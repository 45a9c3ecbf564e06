package parsers

import (
	"fmt"
	"time"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/normalizer"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/shopspring/decimal"
)

// StatementParser parses statement documents with one layout. It holds no
// per-document state and is safe for concurrent use.
type StatementParser struct {
	layout *StatementLayout
	dates  *normalizer.DateParser
	logger logger.Logger
	now    func() time.Time
}

// NewStatementParser creates a StatementParser with the given layout
func NewStatementParser(layout *StatementLayout, dates *normalizer.DateParser) (*StatementParser, error) {
	if layout == nil {
		layout = DefaultStatementLayout()
	}

	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statement layout: %w", err)
	}

	if dates == nil {
		dates = normalizer.NewDateParser("")
	}

	log := logger.GetGlobalLogger().WithComponent("statement_parser")
	log.WithFields(logger.Fields{
		"layout":       layout.Name,
		"y_tolerance":  layout.YTolerance,
		"fallback_col": layout.FallbackCreditCol,
		"default_ccy":  layout.DefaultCurrency,
	}).Debug("Created statement parser")

	return &StatementParser{
		layout: layout,
		dates:  dates,
		logger: log,
		now:    time.Now,
	}, nil
}

// Layout returns the parser layout
func (p *StatementParser) Layout() *StatementLayout {
	return p.layout
}

// Parse extracts rows and metadata from a statement. Malformed rows are
// counted in the stats and never abort the document. A document with
// neither a cut-off date nor a single row is UnrecognizedDocument.
func (p *StatementParser) Parse(doc *models.RawDocument) (*StatementResult, error) {
	if doc == nil || doc.Kind != models.DocumentStatement {
		return nil, errors.DocumentError(errors.CodeUnrecognizedDocument, docID(doc), nil).
			WithSuggestion("only statement documents can be parsed as tables")
	}

	log := p.logger.WithField("document_id", doc.ID)
	state := &parseState{currency: p.layout.DefaultCurrency}
	meta := &models.StatementMetadata{DocumentID: doc.ID}
	stats := NewParseStats()

	var lines []textLine
	dump, isDump := decodeCharDump(doc.Bytes())
	switch {
	case isDump && dump.hasChars():
		stats.Path = PathPositional
		lines = reconstructLines(dump, p.layout)
	case isDump:
		stats.Path = PathFallback
		lines = splitLines(dump.text())
	default:
		stats.Path = PathFallback
		lines = splitLines(doc.Text())
	}
	stats.LinesSeen = len(lines)

	// Rows need the cut-off year, which may be printed anywhere.
	for _, line := range lines {
		p.applyMetadata(upperFold(line.Text), state, meta)
	}
	if state.cutoff.IsZero() {
		state.cutoff = doc.Envelope.ReceivedAt
		if state.cutoff.IsZero() {
			state.cutoff = p.now()
		}
		stats.Warnings = append(stats.Warnings,
			fmt.Sprintf("no cut-off date found; row years inferred from %s", state.cutoff.Format("2006-01-02")))
	}

	var rows []*Row
	for _, line := range lines {
		upper := upperFold(line.Text)

		var row *Row
		var skipped *errors.RowError
		if stats.Path == PathPositional {
			row, skipped = p.positionalRow(line, state, doc.ID)
		} else if !p.layout.IsBlacklisted(upper) {
			row, skipped = p.fallbackRow(line, state, doc.ID)
		}

		switch {
		case skipped != nil:
			stats.Skip(skipped)
			log.WithFields(logger.Fields{
				"line": line.Number,
				"page": line.Page,
			}).Debugf("Skipping row: %v", skipped)
		case row != nil:
			rows = append(rows, row)
		default:
			applyContext(upper, state, meta)
		}
	}

	if meta.CutoffDate.IsZero() && len(rows) == 0 {
		log.WithField("lines", stats.LinesSeen).Warn("No cut-off date and no rows found")
		return nil, errors.DocumentError(errors.CodeUnrecognizedDocument, doc.ID, nil).
			WithSuggestion("check that the document is a statement in a supported layout")
	}

	if meta.Currency == models.CurrencyUnknown {
		meta.Currency = p.layout.DefaultCurrency
	}
	stats.RowsParsed = len(rows)
	meta.RowsParsed = stats.RowsParsed
	meta.RowsSkipped = stats.RowsSkipped
	stats.Warnings = append(stats.Warnings, checkTotals(meta, rows)...)

	log.WithFields(logger.Fields{
		"path":         stats.Path,
		"rows_parsed":  stats.RowsParsed,
		"rows_skipped": stats.RowsSkipped,
		"cutoff":       meta.CutoffDate.Format("2006-01-02"),
	}).Info("Statement parsed")

	return &StatementResult{Metadata: meta, Rows: rows, Stats: stats}, nil
}

// checkTotals compares declared totals with the parsed rows. Mismatches
// are warnings; single-currency statements only.
func checkTotals(meta *models.StatementMetadata, rows []*Row) []string {
	var warnings []string

	if !meta.OpeningBalance.IsZero() && !meta.ClosingBalance.IsZero() && !meta.BalanceCheck() {
		warnings = append(warnings, fmt.Sprintf("opening %s - debits %s + credits %s does not equal closing %s",
			meta.OpeningBalance.StringFixed(2), meta.TotalDebits.StringFixed(2),
			meta.TotalCredits.StringFixed(2), meta.ClosingBalance.StringFixed(2)))
	}

	if len(meta.Accounts) > 1 {
		return warnings
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, r := range rows {
		if r.Direction == models.DirectionDebit {
			debits = debits.Add(r.Amount)
		} else {
			credits = credits.Add(r.Amount)
		}
	}
	if !meta.TotalDebits.IsZero() && !debits.Equal(meta.TotalDebits) {
		warnings = append(warnings, fmt.Sprintf("parsed debits %s differ from declared total %s",
			debits.StringFixed(2), meta.TotalDebits.StringFixed(2)))
	}
	if !meta.TotalCredits.IsZero() && !credits.Equal(meta.TotalCredits) {
		warnings = append(warnings, fmt.Sprintf("parsed credits %s differ from declared total %s",
			credits.StringFixed(2), meta.TotalCredits.StringFixed(2)))
	}
	return warnings
}

func docID(doc *models.RawDocument) string {
	if doc == nil {
		return ""
	}
	return doc.ID
}
