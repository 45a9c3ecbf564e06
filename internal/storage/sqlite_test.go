package storage

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bank-ledger-reconciler/internal/guard"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "reconciler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.db")

	store, err := Open(path)
	require.NoError(t, err)
	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(allMigrations), version)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, len(allMigrations), count)

	for _, table := range []string{"statement_keys", "message_keys", "statements", "transactions", "reports"} {
		var name string
		err := store.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestSQLiteStore_StatementLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.ReserveStatement(ctx, "p", "hash-1", "doc-1"))

	err := store.ReserveStatement(ctx, "p", "hash-1", "doc-2")
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyProcessed))

	status, err := store.StatementStatus(ctx, "p", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, statusReserved, status)

	require.NoError(t, store.ReleaseStatement(ctx, "p", "hash-1"))
	status, err = store.StatementStatus(ctx, "p", "hash-1")
	require.NoError(t, err)
	assert.Empty(t, status)

	require.NoError(t, store.ReserveStatement(ctx, "p", "hash-1", "doc-3"))
	require.NoError(t, store.CompleteStatement(ctx, "p", "hash-1"))

	// completed keys survive a release
	require.NoError(t, store.ReleaseStatement(ctx, "p", "hash-1"))
	status, err = store.StatementStatus(ctx, "p", "hash-1")
	require.NoError(t, err)
	assert.Equal(t, statusCompleted, status)

	err = store.ReserveStatement(ctx, "p", "hash-1", "doc-4")
	assert.True(t, errors.HasCode(err, errors.CodeAlreadyProcessed))

	assert.NoError(t, store.ReserveStatement(ctx, "other", "hash-1", "doc-5"))

	err = store.CompleteStatement(ctx, "p", "never-reserved")
	assert.True(t, errors.HasCode(err, errors.CodeDataInconsistent))
}

func TestSQLiteStore_ConcurrentReservation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	g := guard.New(store)
	doc := models.NewRawDocument(models.DocumentStatement, []byte("FECHA DE CORTE 15/10/2025"), models.Envelope{})

	var wins, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.BeginStatement(ctx, "p", doc)
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.HasCode(err, errors.CodeAlreadyProcessed):
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
	assert.Equal(t, int32(15), rejected)
}

func TestSQLiteStore_ReserveMessage(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	require.NoError(t, store.ReserveMessage(ctx, "p", "<a@bank>", "doc-1"))
	err := store.ReserveMessage(ctx, "p", "<a@bank>", "doc-2")
	assert.True(t, errors.HasCode(err, errors.CodeDuplicateMessage))
	assert.NoError(t, store.ReserveMessage(ctx, "q", "<a@bank>", "doc-3"))

	require.NoError(t, store.ReleaseMessage(ctx, "p", "<a@bank>"))
	assert.NoError(t, store.ReserveMessage(ctx, "p", "<a@bank>", "doc-4"), "a released key can be claimed again")
}

func sampleTxn(day int, amount string) *models.CanonicalTransaction {
	loc := time.FixedZone("CST", -6*3600)
	return &models.CanonicalTransaction{
		ID:                     uuid.NewString(),
		OccurredAt:             time.Date(2025, 9, day, 23, 30, 0, 0, loc),
		Amount:                 decimal.RequireFromString(amount),
		Direction:              models.DirectionDebit,
		Currency:               models.CurrencyCRC,
		CounterpartyRaw:        "SODA TAPIA SUC CENTRO",
		CounterpartyNormalized: "SODA TAPIA",
		Kind:                   models.KindPurchase,
		Source:                 models.SourceMessage,
		OriginDocumentID:       "doc-1",
		SourceMessageID:        "<a@bank>",
	}
}

func TestSQLiteStore_SaveAndListTransactions(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	txns := []*models.CanonicalTransaction{sampleTxn(27, "3000.50"), sampleTxn(10, "12500")}
	require.NoError(t, store.SaveTransactions(ctx, "p", txns))

	all, err := store.ListTransactions(ctx, "p", models.Period{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, txns[1].ID, all[0].ID)

	got := all[1]
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("3000.50")))
	assert.Equal(t, "2025-09-27", got.Day(), "calendar day keeps its offset")
	assert.Equal(t, models.KindPurchase, got.Kind)
	assert.Equal(t, "<a@bank>", got.SourceMessageID)
	assert.NoError(t, got.Validate())

	period := models.Period{
		Start: time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
	}
	inPeriod, err := store.ListTransactions(ctx, "p", period)
	require.NoError(t, err)
	require.Len(t, inPeriod, 1)
	assert.Equal(t, txns[0].ID, inPeriod[0].ID)

	none, err := store.ListTransactions(ctx, "other", models.Period{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_SaveTransactionsRejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	bad := sampleTxn(1, "10")
	bad.Amount = decimal.Zero
	err := store.SaveTransactions(ctx, "p", []*models.CanonicalTransaction{sampleTxn(2, "5"), bad})
	assert.True(t, errors.HasCode(err, errors.CodeDataInconsistent))

	all, err := store.ListTransactions(ctx, "p", models.Period{})
	require.NoError(t, err)
	assert.Empty(t, all, "nothing from a rejected batch is persisted")
}

func TestSQLiteStore_SaveStatement(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	meta := &models.StatementMetadata{
		DocumentID:     "doc-1",
		AccountID:      "CR0001",
		Currency:       models.CurrencyCRC,
		CutoffDate:     time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.NewFromInt(100000),
		ClosingBalance: decimal.NewFromInt(90000),
		TotalDebits:    decimal.NewFromInt(10000),
		Accounts:       []string{"CR0002"},
		RowsParsed:     4,
	}
	rows := []*models.CanonicalTransaction{sampleTxn(1, "6000"), sampleTxn(2, "4000")}
	require.NoError(t, store.SaveStatement(ctx, "p", meta, rows))

	var closing decimal.Decimal
	var parsed int
	require.NoError(t, store.db.QueryRow(`SELECT closing_balance, rows_parsed FROM statements WHERE document_id = ?`, "doc-1").Scan(&closing, &parsed))
	assert.True(t, closing.Equal(decimal.NewFromInt(90000)))
	assert.Equal(t, 4, parsed)

	all, err := store.ListTransactions(ctx, "p", models.Period{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Error(t, store.SaveStatement(ctx, "p", meta, nil), "a document is stored once")
}

func TestSQLiteStore_SaveStatementIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	existing := sampleTxn(1, "6000")
	require.NoError(t, store.SaveTransactions(ctx, "p", []*models.CanonicalTransaction{existing}))

	meta := &models.StatementMetadata{DocumentID: "doc-2", Currency: models.CurrencyCRC}
	clash := sampleTxn(3, "4000")
	clash.ID = existing.ID

	err := store.SaveStatement(ctx, "p", meta, []*models.CanonicalTransaction{sampleTxn(2, "500"), clash})
	assert.True(t, errors.HasCode(err, errors.CodeStorageWrite), "got %v", err)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM statements WHERE document_id = ?`, "doc-2").Scan(&count))
	assert.Zero(t, count, "a failed row insert leaves no statement behind")
	all, err := store.ListTransactions(ctx, "p", models.Period{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.SaveStatement(ctx, "p", meta, []*models.CanonicalTransaction{sampleTxn(2, "500"), sampleTxn(3, "4000")}),
		"the same statement can be saved on retry")
	all, err = store.ListTransactions(ctx, "p", models.Period{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func newReport(profile string) *models.ReconciliationReport {
	return &models.ReconciliationReport{
		ID:        uuid.NewString(),
		ProfileID: profile,
		Period: models.Period{
			Start: time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC),
		},
		CreatedAt:      time.Now().UTC(),
		StatementCount: 1,
		Counts:         map[models.ResultKind]int{models.ResultStatementOnly: 1},
		StatementTotal: map[models.Currency]decimal.Decimal{models.CurrencyCRC: decimal.NewFromInt(3000)},
		Discrepancies: []*models.MatchResult{{
			Kind:      models.ResultStatementOnly,
			Statement: sampleTxn(27, "3000"),
		}},
	}
}

func TestSQLiteStore_ReportsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := newReport("p")
	second := newReport("p")
	require.NoError(t, store.SaveReport(ctx, first))
	require.NoError(t, store.SaveReport(ctx, second))

	err := store.SaveReport(ctx, first)
	assert.True(t, errors.HasCode(err, errors.CodeDataInconsistent))

	reports, err := store.ListReports(ctx, "p")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, first.ID, reports[0].ID)
	assert.Equal(t, second.ID, reports[1].ID)

	got := reports[0]
	assert.Equal(t, 1, got.Counts[models.ResultStatementOnly])
	assert.True(t, got.StatementTotal[models.CurrencyCRC].Equal(decimal.NewFromInt(3000)))
	require.Len(t, got.Discrepancies, 1)
	assert.True(t, got.Discrepancies[0].Statement.Amount.Equal(decimal.NewFromInt(3000)))
	assert.NoError(t, got.CheckConservation())
}
