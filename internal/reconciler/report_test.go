package reconciler_test

import (
	"testing"
	"time"

	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/reconciler"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportTxn(source models.Source, day int, amount string, direction models.Direction, currency models.Currency) *models.CanonicalTransaction {
	return &models.CanonicalTransaction{
		ID:               string(source) + amount,
		OccurredAt:       time.Date(2025, 9, day, 10, 0, 0, 0, time.UTC),
		Amount:           decimal.RequireFromString(amount),
		Direction:        direction,
		Currency:         currency,
		Kind:             models.KindPurchase,
		Source:           source,
		OriginDocumentID: "doc",
	}
}

func TestBuildReport(t *testing.T) {
	stmtUSD := reportTxn(models.SourceStatement, 3, "12.50", models.DirectionDebit, models.CurrencyUSD)
	msgUSD := reportTxn(models.SourceMessage, 3, "12.50", models.DirectionDebit, models.CurrencyUSD)
	stmtCRC := reportTxn(models.SourceStatement, 4, "20000", models.DirectionCredit, models.CurrencyCRC)
	msgCRC := reportTxn(models.SourceMessage, 9, "500", models.DirectionDebit, models.CurrencyCRC)

	outcome := &matcher.Outcome{
		StatementCount: 2,
		MessageCount:   2,
		Results: []*models.MatchResult{
			{Kind: models.ResultMatched, Statement: stmtUSD, Message: msgUSD},
			{Kind: models.ResultStatementOnly, Statement: stmtCRC},
			{Kind: models.ResultMessageOnly, Message: msgCRC},
		},
	}
	now := time.Date(2025, 10, 16, 8, 0, 0, 0, time.FixedZone("CST", -6*3600))

	report := reconciler.BuildReport("p", outcome, models.Period{}, []string{"w"}, true, now)
	require.NoError(t, report.CheckConservation())

	assert.Equal(t, now.UTC(), report.CreatedAt)
	assert.Equal(t, 1, report.Counts[models.ResultMatched])
	assert.Equal(t, 0, report.Counts[models.ResultDateMismatch], "every kind is present")
	assert.Len(t, report.Matched, 1)
	assert.Len(t, report.Discrepancies, 2)
	assert.Equal(t, []string{"w"}, report.Warnings)

	assert.True(t, report.StatementTotal[models.CurrencyUSD].Equal(decimal.RequireFromString("-12.50")))
	assert.True(t, report.StatementTotal[models.CurrencyCRC].Equal(decimal.NewFromInt(20000)))
	assert.True(t, report.MessageTotal[models.CurrencyCRC].Equal(decimal.NewFromInt(-500)))

	countsOnly := reconciler.BuildReport("p", outcome, models.Period{}, nil, false, now)
	assert.Empty(t, countsOnly.Matched)
	assert.Equal(t, 1, countsOnly.Counts[models.ResultMatched])
	assert.NotEqual(t, report.ID, countsOnly.ID)
}

func TestBuildReport_EmptyOutcome(t *testing.T) {
	report := reconciler.BuildReport("p", &matcher.Outcome{}, models.Period{}, nil, true, time.Now())
	require.NoError(t, report.CheckConservation())
	assert.NotNil(t, report.Discrepancies)
	assert.Empty(t, report.Discrepancies)
}

func TestReportPeriod(t *testing.T) {
	txns := []*models.CanonicalTransaction{
		reportTxn(models.SourceStatement, 12, "1", models.DirectionDebit, models.CurrencyCRC),
		reportTxn(models.SourceMessage, 3, "1", models.DirectionDebit, models.CurrencyCRC),
	}
	metas := []*models.StatementMetadata{{CutoffDate: time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)}}

	period := reconciler.ReportPeriod(metas, txns)
	assert.Equal(t, "2025-09-03..2025-09-15", period.String())

	assert.True(t, reconciler.ReportPeriod(nil).End.IsZero())
}
