package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Amounts cross the wire as text so NUMERIC precision survives intact.
const transactionColumns = `id, date, description, amount::text, type, account_id,
	COALESCE(category_id, ''), tax_mapping, is_tax_deductible, confidence, needs_review`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t      model.Transaction
		date   *time.Time
		amount string
	)
	err := row.Scan(&t.ID, &date, &t.Description, &amount, &t.Type, &t.AccountID,
		&t.CategoryID, &t.TaxMapping, &t.IsTaxDeductible, &t.Confidence, &t.NeedsReview)
	if err != nil {
		return nil, err
	}
	if date != nil {
		t.Date = *date
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return &t, nil
}

// SaveTransactions upserts transactions in one batch. Classification state of
// existing rows is left untouched.
func (s *Store) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	if err := storage.ValidateTransactions(transactions); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, txn := range transactions {
			batch.Queue(`
				INSERT INTO transactions (id, date, description, amount, type, account_id)
				VALUES ($1, $2, $3, $4::text::numeric, $5, $6)
				ON CONFLICT (id) DO UPDATE SET
					date = EXCLUDED.date,
					description = EXCLUDED.description,
					amount = EXCLUDED.amount,
					type = EXCLUDED.type,
					account_id = EXCLUDED.account_id
			`, txn.ID, optionalTime(txn.Date), txn.Description, txn.Amount.String(), txn.Type, txn.AccountID)
		}

		results := tx.SendBatch(ctx, batch)
		for _, txn := range transactions {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
			}
		}
		return results.Close()
	})
}

// GetTransaction retrieves a transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return t, nil
}

// ListTransactions returns transactions matching filter, oldest first.
func (s *Store) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.NeedsReviewOnly {
		where = append(where, "needs_review")
	}
	if filter.UnclassifiedOnly {
		where = append(where, "category_id IS NULL")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date NULLS FIRST, id`
	if filter.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

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
func (s *Store) RecordClassification(ctx context.Context, transactionID string, result model.ClassificationResult) error {
	if result.CategoryID == "" {
		return fmt.Errorf("%w: result.CategoryID", storage.ErrEmptyString)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET
			category_id = $1, tax_mapping = $2, is_tax_deductible = $3,
			confidence = $4, needs_review = $5, classified_at = now()
		WHERE id = $6
	`, result.CategoryID, result.TaxMapping, result.IsTaxDeductible,
		result.ConfidenceScore, result.NeedsReview, transactionID)
	if err != nil {
		return fmt.Errorf("failed to record classification: %w", err)
	}
	return requireAffected(tag, "transaction", transactionID)
}

// ApplyCorrection writes a user-chosen category onto a transaction and clears its review flag.
func (s *Store) ApplyCorrection(ctx context.Context, transactionID string, category model.Category) error {
	if category.ID == "" {
		return fmt.Errorf("%w: category.ID", storage.ErrEmptyString)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET
			category_id = $1, tax_mapping = $2, is_tax_deductible = $3,
			confidence = 1, needs_review = FALSE, classified_at = now()
		WHERE id = $4
	`, category.ID, category.TaxMapping, category.IsTaxDeductible(), transactionID)
	if err != nil {
		return fmt.Errorf("failed to apply correction: %w", err)
	}
	return requireAffected(tag, "transaction", transactionID)
}
