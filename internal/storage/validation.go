package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidRule        = fmt.Errorf("%w: rule", common.ErrInvalidInput)
	ErrInvalidCategory    = fmt.Errorf("%w: category", common.ErrInvalidInput)
	ErrInvalidTransaction = fmt.Errorf("%w: transaction", common.ErrInvalidInput)
	ErrInvalidEntity      = fmt.Errorf("%w: entity", common.ErrInvalidInput)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// ValidateRule checks a rule before it is written.
func ValidateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Keyword) == "" {
		return fmt.Errorf("%w: missing keyword", ErrInvalidRule)
	}
	if !rule.MatchType.Valid() {
		return fmt.Errorf("%w: unknown match type %q", ErrInvalidRule, rule.MatchType)
	}
	if rule.CategoryID == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	if !rule.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRule, rule.Source)
	}
	if rule.TaxMapping != "" && !rule.TaxMapping.Valid() {
		return fmt.Errorf("%w: unknown tax mapping %q", ErrInvalidRule, rule.TaxMapping)
	}
	if rule.TransactionType != "" && !rule.TransactionType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidRule, rule.TransactionType)
	}
	return nil
}

// ValidateCategory checks a category before it is written.
func ValidateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("%w: category", ErrNilParameter)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if !category.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCategory, category.Type)
	}
	if category.TaxMapping != "" && !category.TaxMapping.Valid() {
		return fmt.Errorf("%w: unknown tax mapping %q", ErrInvalidCategory, category.TaxMapping)
	}
	return nil
}

// ValidateTransactions checks every transaction in a batch.
func ValidateTransactions(transactions []model.Transaction) error {
	for i := range transactions {
		txn := &transactions[i]
		if txn.ID == "" {
			return fmt.Errorf("transaction at index %d: %w: missing ID", i, ErrInvalidTransaction)
		}
		if strings.TrimSpace(txn.Description) == "" {
			return fmt.Errorf("transaction at index %d: %w: missing description", i, ErrInvalidTransaction)
		}
		if !txn.Type.Valid() {
			return fmt.Errorf("transaction at index %d: %w: unknown type %q", i, ErrInvalidTransaction, txn.Type)
		}
	}
	return nil
}

// ValidateEntity checks an entity before it is written.
func ValidateEntity(entity *model.Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity", ErrNilParameter)
	}
	if strings.TrimSpace(entity.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidEntity)
	}
	if strings.TrimSpace(entity.OwnerID) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidEntity)
	}
	return nil
}
