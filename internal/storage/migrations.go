package storage

import (
	"database/sql"
	"fmt"

	"bank-ledger-reconciler/pkg/logger"
)

// Migration is one versioned schema change
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

var allMigrations = []Migration{
	{Version: 1, Name: "idempotency_keys", Up: migration001IdempotencyKeys},
	{Version: 2, Name: "statements_and_transactions", Up: migration002StatementsAndTransactions},
	{Version: 3, Name: "reports", Up: migration003Reports},
}

func (s *SQLiteStore) runMigrations() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.appliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range allMigrations {
		if applied[m.Version] {
			continue
		}

		log := s.logger.WithFields(logger.Fields{"version": m.Version, "name": m.Name})
		log.Debug("Running migration")

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		log.Info("Migration applied")
	}
	return nil
}

func (s *SQLiteStore) appliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// SchemaVersion returns the highest applied migration
func (s *SQLiteStore) SchemaVersion() (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// migration001IdempotencyKeys creates the statement and message key tables.
// The unique constraints are what make reservations atomic.
func migration001IdempotencyKeys(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE statement_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			document_id TEXT NOT NULL,
			status TEXT NOT NULL,
			reserved_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			UNIQUE(profile_id, content_hash)
		)`,

		`CREATE TABLE message_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL,
			source_message_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			received_at TIMESTAMP NOT NULL,
			UNIQUE(profile_id, source_message_id)
		)`,
	})
}

// migration002StatementsAndTransactions stores statement metadata and the
// canonical transactions of both sources
func migration002StatementsAndTransactions(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE statements (
			document_id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			account_id TEXT,
			currency TEXT NOT NULL,
			cutoff_date TEXT,
			opening_balance TEXT,
			closing_balance TEXT,
			total_debits TEXT,
			total_credits TEXT,
			accounts_json TEXT,
			rows_parsed INTEGER DEFAULT 0,
			rows_skipped INTEGER DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE transactions (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			source TEXT NOT NULL,
			origin_document_id TEXT NOT NULL,
			source_message_id TEXT,
			occurred_at TEXT NOT NULL,
			amount TEXT NOT NULL,
			direction TEXT NOT NULL,
			currency TEXT NOT NULL,
			counterparty_raw TEXT,
			counterparty_normalized TEXT,
			kind TEXT NOT NULL,
			reference TEXT,
			memo TEXT,
			account_id TEXT,
			is_transfer BOOLEAN DEFAULT 0,
			is_fee_or_interest BOOLEAN DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX idx_transactions_profile_occurred
		 ON transactions(profile_id, occurred_at)`,

		`CREATE INDEX idx_transactions_origin
		 ON transactions(origin_document_id)`,
	})
}

// migration003Reports adds the append-only report log
func migration003Reports(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE reports (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL,
			period_start TEXT,
			period_end TEXT,
			report_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX idx_reports_profile ON reports(profile_id, created_at)`,
	})
}
