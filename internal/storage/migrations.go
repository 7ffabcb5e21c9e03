package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Categories, rules and transactions",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
					tax_mapping TEXT NOT NULL DEFAULT 'none',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id TEXT PRIMARY KEY,
					keyword TEXT NOT NULL COLLATE NOCASE,
					match_type TEXT NOT NULL CHECK (match_type IN ('exact', 'contains', 'starts_with')),
					category_id TEXT NOT NULL REFERENCES categories(id),
					tax_mapping TEXT NOT NULL DEFAULT 'none',
					is_tax_deductible INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL DEFAULT 'manual',
					description TEXT NOT NULL DEFAULT '',
					learned_from TEXT NOT NULL DEFAULT '',
					transaction_type TEXT NOT NULL DEFAULT '',
					priority INTEGER NOT NULL DEFAULT 0,
					usage_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (keyword, match_type)
				)`,
				`CREATE INDEX idx_rules_category ON rules(category_id)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					date DATETIME,
					description TEXT NOT NULL,
					amount TEXT NOT NULL DEFAULT '0',
					type TEXT NOT NULL CHECK (type IN ('debit', 'credit')),
					account_id TEXT NOT NULL DEFAULT '',
					category_id TEXT REFERENCES categories(id),
					tax_mapping TEXT NOT NULL DEFAULT '',
					is_tax_deductible INTEGER NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					needs_review INTEGER NOT NULL DEFAULT 0,
					classified_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,
				`CREATE INDEX idx_transactions_review ON transactions(needs_review)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Registered entities",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS entities (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					name TEXT NOT NULL,
					trading_name TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL DEFAULT '',
					company_number TEXT NOT NULL DEFAULT '',
					vat_number TEXT NOT NULL DEFAULT '',
					utr TEXT NOT NULL DEFAULT '',
					paye_reference TEXT NOT NULL DEFAULT '',
					ni_number TEXT NOT NULL DEFAULT '',
					registered_address TEXT NOT NULL DEFAULT '',
					trading_address TEXT NOT NULL DEFAULT '',
					is_default INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_entities_owner ON entities(owner_id)`,
			})
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		common.LogInfo(ctx, "applied migration", common.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		})
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
