package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

const transactionColumns = `id, date, description, amount, type, account_id,
	COALESCE(category_id, ''), tax_mapping, is_tax_deductible, confidence, needs_review`

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	var (
		t                       model.Transaction
		date                    sql.NullTime
		deductible, needsReview int
	)
	err := row.Scan(&t.ID, &date, &t.Description, &t.Amount, &t.Type, &t.AccountID,
		&t.CategoryID, &t.TaxMapping, &deductible, &t.Confidence, &needsReview)
	if err != nil {
		return nil, err
	}
	t.Date = date.Time
	t.IsTaxDeductible = deductible == 1
	t.NeedsReview = needsReview == 1
	return &t, nil
}

// SaveTransactions upserts transactions by id. Classification state of
// existing rows is left untouched.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}
	if err := ValidateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (id, date, description, amount, type, account_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				date = excluded.date,
				description = excluded.description,
				amount = excluded.amount,
				type = excluded.type,
				account_id = excluded.account_id
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			var date any
			if !txn.Date.IsZero() {
				date = txn.Date
			}
			if _, err := stmt.ExecContext(ctx, txn.ID, date, txn.Description,
				txn.Amount.String(), txn.Type, txn.AccountID); err != nil {
				return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// GetTransaction retrieves a transaction by id.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	t, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns transactions matching filter, oldest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.NeedsReviewOnly {
		where = append(where, "needs_review = 1")
	}
	if filter.UnclassifiedOnly {
		where = append(where, "category_id IS NULL")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

// RecordClassification stores an engine decision on a transaction.
func (s *SQLiteStorage) RecordClassification(ctx context.Context, transactionID string, result model.ClassificationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(result.CategoryID, "result.CategoryID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			category_id = ?, tax_mapping = ?, is_tax_deductible = ?,
			confidence = ?, needs_review = ?, classified_at = ?
		WHERE id = ?
	`, result.CategoryID, result.TaxMapping, boolToInt(result.IsTaxDeductible),
		result.ConfidenceScore, boolToInt(result.NeedsReview), time.Now(), transactionID)
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}
	return requireAffected(res, "transaction", transactionID)
}

// ApplyCorrection writes a user-chosen category onto a transaction and clears its review flag.
func (s *SQLiteStorage) ApplyCorrection(ctx context.Context, transactionID string, category model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(category.ID, "category.ID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			category_id = ?, tax_mapping = ?, is_tax_deductible = ?,
			confidence = 1, needs_review = 0, classified_at = ?
		WHERE id = ?
	`, category.ID, category.TaxMapping, boolToInt(category.IsTaxDeductible()), time.Now(), transactionID)
	if err != nil {
		return fmt.Errorf("failed to apply correction: %w", err)
	}
	return requireAffected(res, "transaction", transactionID)
}
