package reconciler

import (
	"context"
	"time"

	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reconcile matches the successful transactions of two batches, builds a
// new report and appends it to the sink. Every call produces a distinct
// report, even for identical inputs.
func (p *Pipeline) Reconcile(ctx context.Context, profileID string, statements, messages *BatchResult) (*models.ReconciliationReport, error) {
	if statements == nil {
		statements = &BatchResult{}
	}
	if messages == nil {
		messages = &BatchResult{}
	}

	stmtTxns := statements.Transactions()
	msgTxns := messages.Transactions()

	outcome := p.engine.Reconcile(stmtTxns, msgTxns)
	if err := outcome.Verify(); err != nil {
		return nil, err
	}

	period := ReportPeriod(statements.Metadata(), stmtTxns, msgTxns)

	warnings := append(statements.Warnings(), messages.Warnings()...)
	warnings = append(warnings, p.guard.FlagSoftDuplicates(msgTxns, p.storedMessages(ctx, profileID, period, msgTxns))...)

	report := BuildReport(profileID, outcome, period, warnings, p.config.IncludeMatched, time.Now())
	if err := report.CheckConservation(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeDataInconsistent, "build_report", err)
	}

	if p.sink != nil {
		if err := p.sink.SaveReport(ctx, report); err != nil {
			return nil, err
		}
	}

	p.logger.WithFields(logger.Fields{
		"report_id":       report.ID,
		"profile_id":      profileID,
		"period":          report.Period.String(),
		"matched":         report.Counts[models.ResultMatched],
		"amount_mismatch": report.Counts[models.ResultAmountMismatch],
		"date_mismatch":   report.Counts[models.ResultDateMismatch],
		"statement_only":  report.Counts[models.ResultStatementOnly],
		"message_only":    report.Counts[models.ResultMessageOnly],
		"warnings":        len(report.Warnings),
	}).Info("Reconciliation report created")

	return report, nil
}

// storedMessages loads previously persisted message transactions of the
// period, excluding the copies of this run's own messages
func (p *Pipeline) storedMessages(ctx context.Context, profileID string, period models.Period, current []*models.CanonicalTransaction) []*models.CanonicalTransaction {
	if p.sink == nil || period.End.IsZero() {
		return nil
	}

	stored, err := p.sink.ListTransactions(ctx, profileID, period)
	if err != nil {
		p.logger.WithError(err).Warn("Could not load stored transactions; soft duplicates checked within the run only")
		return nil
	}

	own := make(map[string]bool, len(current)*2)
	for _, t := range current {
		own[t.ID] = true
		if t.SourceMessageID != "" {
			own[t.SourceMessageID] = true
		}
	}

	var existing []*models.CanonicalTransaction
	for _, t := range stored {
		if t.Source != models.SourceMessage || own[t.ID] || own[t.SourceMessageID] {
			continue
		}
		existing = append(existing, t)
	}
	return existing
}

// BuildReport assembles a report from a matcher outcome. Totals are signed
// (credits positive) per source and currency.
func BuildReport(profileID string, outcome *matcher.Outcome, period models.Period, warnings []string, includeMatched bool, now time.Time) *models.ReconciliationReport {
	report := &models.ReconciliationReport{
		ID:             uuid.NewString(),
		ProfileID:      profileID,
		Period:         period,
		CreatedAt:      now.UTC(),
		StatementCount: outcome.StatementCount,
		MessageCount:   outcome.MessageCount,
		Counts:         outcome.Counts(),
		StatementTotal: make(map[models.Currency]decimal.Decimal),
		MessageTotal:   make(map[models.Currency]decimal.Decimal),
		Discrepancies:  make([]*models.MatchResult, 0),
		Warnings:       warnings,
	}

	for _, r := range outcome.Results {
		if r.Statement != nil {
			addTotal(report.StatementTotal, r.Statement)
		}
		if r.Message != nil {
			addTotal(report.MessageTotal, r.Message)
		}

		if r.Kind == models.ResultMatched {
			if includeMatched {
				report.Matched = append(report.Matched, r)
			}
			continue
		}
		report.Discrepancies = append(report.Discrepancies, r)
	}
	return report
}

func addTotal(totals map[models.Currency]decimal.Decimal, t *models.CanonicalTransaction) {
	totals[t.Currency] = totals[t.Currency].Add(t.SignedAmount())
}

// ReportPeriod spans the calendar days of every transaction, extended to
// the latest statement cut-off. It is zero when there is nothing to span.
func ReportPeriod(metas []*models.StatementMetadata, txnSets ...[]*models.CanonicalTransaction) models.Period {
	var period models.Period

	extend := func(t time.Time) {
		if t.IsZero() {
			return
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if period.Start.IsZero() || day.Before(period.Start) {
			period.Start = day
		}
		if period.End.IsZero() || day.After(period.End) {
			period.End = day
		}
	}

	for _, txns := range txnSets {
		for _, t := range txns {
			extend(t.OccurredAt)
		}
	}
	for _, m := range metas {
		extend(m.CutoffDate)
	}
	return period
}
