// Package storage persists ingestion state in SQLite. Idempotency keys are
// enforced by unique constraints, so concurrent reservations of the same
// statement or message serialize in the database rather than in memory.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"bank-ledger-reconciler/internal/guard"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"

	"github.com/mattn/go-sqlite3"
)

const (
	statusReserved  = "reserved"
	statusCompleted = "completed"
)

// SQLiteStore implements guard.Store and the pipeline's sink
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

var _ guard.Store = (*SQLiteStore)(nil)

// Open opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "open", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:"
	// databases from splitting into several.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "open", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.GetGlobalLogger().WithComponent("storage"),
		now:    time.Now,
	}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "migrate", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReserveStatement implements guard.Store
func (s *SQLiteStore) ReserveStatement(ctx context.Context, profileID, contentHash, documentID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statement_keys (profile_id, content_hash, document_id, status, reserved_at)
		VALUES (?, ?, ?, ?, ?)`,
		profileID, contentHash, documentID, statusReserved, s.now().UTC(),
	)
	if isUniqueViolation(err) {
		return errors.IdempotencyError(errors.CodeAlreadyProcessed, profileID, contentHash)
	}
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "reserve statement", err)
	}
	return nil
}

// CompleteStatement implements guard.Store
func (s *SQLiteStore) CompleteStatement(ctx context.Context, profileID, contentHash string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE statement_keys SET status = ?, completed_at = ?
		WHERE profile_id = ? AND content_hash = ?`,
		statusCompleted, s.now().UTC(), profileID, contentHash,
	)
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "complete statement", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.CategoryIdempotency, errors.CodeDataInconsistent, "completing a statement that was never reserved")
	}
	return nil
}

// ReleaseStatement implements guard.Store. Completed rows are kept.
func (s *SQLiteStore) ReleaseStatement(ctx context.Context, profileID, contentHash string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM statement_keys
		WHERE profile_id = ? AND content_hash = ? AND status = ?`,
		profileID, contentHash, statusReserved,
	)
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "release statement", err)
	}
	return nil
}

// ReserveMessage implements guard.Store
func (s *SQLiteStore) ReserveMessage(ctx context.Context, profileID, messageID, documentID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_keys (profile_id, source_message_id, document_id, received_at)
		VALUES (?, ?, ?, ?)`,
		profileID, messageID, documentID, s.now().UTC(),
	)
	if isUniqueViolation(err) {
		return errors.IdempotencyError(errors.CodeDuplicateMessage, profileID, messageID)
	}
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "reserve message", err)
	}
	return nil
}

// StatementStatus returns the reservation status of a statement, or ""
// when the key is unknown
func (s *SQLiteStore) StatementStatus(ctx context.Context, profileID, contentHash string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM statement_keys WHERE profile_id = ? AND content_hash = ?`,
		profileID, contentHash,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.StorageError(errors.CodeStorageUnavailable, "statement status", err)
	}
	return status, nil
}

// ReleaseMessage implements guard.Store
func (s *SQLiteStore) ReleaseMessage(ctx context.Context, profileID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM message_keys WHERE profile_id = ? AND source_message_id = ?`,
		profileID, messageID,
	)
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "release message", err)
	}
	return nil
}

// SaveStatement records the metadata of a parsed statement together with
// its transactions. Both land in one database transaction, so a failure
// leaves nothing behind and the statement can be retried.
func (s *SQLiteStore) SaveStatement(ctx context.Context, profileID string, meta *models.StatementMetadata, txns []*models.CanonicalTransaction) error {
	if err := validateAll(txns); err != nil {
		return err
	}
	accounts, err := json.Marshal(meta.Accounts)
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "save statement", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable, "save statement", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO statements
		(document_id, profile_id, account_id, currency, cutoff_date,
		 opening_balance, closing_balance, total_debits, total_credits,
		 accounts_json, rows_parsed, rows_skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.DocumentID,
		profileID,
		meta.AccountID,
		string(meta.Currency),
		formatTime(meta.CutoffDate),
		meta.OpeningBalance,
		meta.ClosingBalance,
		meta.TotalDebits,
		meta.TotalCredits,
		string(accounts),
		meta.RowsParsed,
		meta.RowsSkipped,
		s.now().UTC(),
	)
	if err != nil {
		_ = tx.Rollback()
		return errors.StorageError(errors.CodeStorageWrite, "save statement", err)
	}

	if err := s.insertTransactions(ctx, tx, profileID, txns); err != nil {
		_ = tx.Rollback()
		return errors.StorageError(errors.CodeStorageWrite, "save statement", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "save statement", err)
	}
	s.logger.WithFields(logger.Fields{
		"profile_id":   profileID,
		"document_id":  meta.DocumentID,
		"transactions": len(txns),
	}).Debug("Statement saved")
	return nil
}

// SaveTransactions stores txns in one database transaction. Every record
// is validated first; one invalid record rejects the whole batch.
func (s *SQLiteStore) SaveTransactions(ctx context.Context, profileID string, txns []*models.CanonicalTransaction) error {
	if err := validateAll(txns); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StorageError(errors.CodeStorageUnavailable, "save transactions", err)
	}
	if err := s.insertTransactions(ctx, tx, profileID, txns); err != nil {
		_ = tx.Rollback()
		return errors.StorageError(errors.CodeStorageWrite, "save transactions", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "save transactions", err)
	}

	s.logger.WithFields(logger.Fields{
		"profile_id":   profileID,
		"transactions": len(txns),
	}).Debug("Transactions saved")
	return nil
}

func validateAll(txns []*models.CanonicalTransaction) error {
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			return errors.ValidationError(errors.CodeDataInconsistent, "transaction", t.ID, err)
		}
	}
	return nil
}

func (s *SQLiteStore) insertTransactions(ctx context.Context, tx *sql.Tx, profileID string, txns []*models.CanonicalTransaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions
		(id, profile_id, source, origin_document_id, source_message_id,
		 occurred_at, amount, direction, currency, counterparty_raw,
		 counterparty_normalized, kind, reference, memo, account_id,
		 is_transfer, is_fee_or_interest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	created := s.now().UTC()
	for _, t := range txns {
		_, err := stmt.ExecContext(ctx,
			t.ID,
			profileID,
			string(t.Source),
			t.OriginDocumentID,
			t.SourceMessageID,
			formatTime(t.OccurredAt),
			t.Amount,
			string(t.Direction),
			string(t.Currency),
			t.CounterpartyRaw,
			t.CounterpartyNormalized,
			string(t.Kind),
			t.Reference,
			t.Memo,
			t.AccountID,
			t.IsTransfer,
			t.IsFeeOrInterest,
			created,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListTransactions returns the stored transactions of a profile whose
// calendar day falls inside period, ordered by occurrence. A zero period
// returns everything.
func (s *SQLiteStore) ListTransactions(ctx context.Context, profileID string, period models.Period) ([]*models.CanonicalTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, origin_document_id, source_message_id, occurred_at,
		       amount, direction, currency, counterparty_raw,
		       counterparty_normalized, kind, reference, memo, account_id,
		       is_transfer, is_fee_or_interest
		FROM transactions
		WHERE profile_id = ?
		ORDER BY occurred_at, rowid`,
		profileID,
	)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "list transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.CanonicalTransaction
	for rows.Next() {
		var (
			t                                      models.CanonicalTransaction
			source, direction, currency, kind, occ string
		)
		if err := rows.Scan(
			&t.ID, &source, &t.OriginDocumentID, &t.SourceMessageID, &occ,
			&t.Amount, &direction, &currency, &t.CounterpartyRaw,
			&t.CounterpartyNormalized, &kind, &t.Reference, &t.Memo, &t.AccountID,
			&t.IsTransfer, &t.IsFeeOrInterest,
		); err != nil {
			return nil, errors.StorageError(errors.CodeStorageUnavailable, "list transactions", err)
		}
		t.OccurredAt, err = time.Parse(time.RFC3339Nano, occ)
		if err != nil {
			return nil, errors.StorageError(errors.CodeDataInconsistent, "list transactions", err)
		}
		if !period.End.IsZero() && !period.Contains(t.OccurredAt) {
			continue
		}
		t.Source = models.Source(source)
		t.Direction = models.Direction(direction)
		t.Currency = models.Currency(currency)
		t.Kind = models.Kind(kind)
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "list transactions", err)
	}
	return out, nil
}

// SaveReport appends a report. Reports are never updated; saving the same
// report ID twice fails.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *models.ReconciliationReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "save report", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, profile_id, period_start, period_end, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID,
		report.ProfileID,
		formatTime(report.Period.Start),
		formatTime(report.Period.End),
		string(body),
		report.CreatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return errors.StorageError(errors.CodeDataInconsistent, "save report", fmt.Errorf("report %s already exists", report.ID))
	}
	if err != nil {
		return errors.StorageError(errors.CodeStorageWrite, "save report", err)
	}
	return nil
}

// ListReports returns every report of a profile, oldest first
func (s *SQLiteStore) ListReports(ctx context.Context, profileID string) ([]*models.ReconciliationReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_json FROM reports WHERE profile_id = ? ORDER BY created_at, rowid`,
		profileID,
	)
	if err != nil {
		return nil, errors.StorageError(errors.CodeStorageUnavailable, "list reports", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*models.ReconciliationReport
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.StorageError(errors.CodeStorageUnavailable, "list reports", err)
		}
		var r models.ReconciliationReport
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, errors.StorageError(errors.CodeDataInconsistent, "list reports", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !stderrors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// formatTime keeps the original offset so calendar days survive a round trip
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
