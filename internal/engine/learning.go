package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
	"github.com/Veraticus/spice-ledger/internal/rules"
)

// Outcome messages for corrections that could not be applied.
const (
	MessageTransactionNotFound = "Transaction not found"
	MessageCategoryNotFound    = "Category not found"
)

// LearnFromCorrection records a user's category choice for a transaction and
// turns it into a contains rule keyed on the description's first meaningful
// word. Missing targets are reported in the outcome, not as errors.
func (e *Engine) LearnFromCorrection(ctx context.Context, transactionID, categoryID string) (model.LearningOutcome, error) {
	tx, err := e.store.GetTransaction(ctx, transactionID)
	if errors.Is(err, common.ErrNotFound) {
		return model.LearningOutcome{Message: MessageTransactionNotFound}, nil
	}
	if err != nil {
		return model.LearningOutcome{}, fmt.Errorf("failed to load transaction: %w", err)
	}

	category, err := e.store.GetCategoryByID(ctx, categoryID)
	if errors.Is(err, common.ErrNotFound) {
		return model.LearningOutcome{Message: MessageCategoryNotFound}, nil
	}
	if err != nil {
		return model.LearningOutcome{}, fmt.Errorf("failed to load category: %w", err)
	}

	outcome, err := e.learnRule(ctx, tx, category)
	if err != nil {
		return model.LearningOutcome{}, err
	}

	if err := e.store.ApplyCorrection(ctx, tx.ID, *category); err != nil {
		return model.LearningOutcome{}, fmt.Errorf("failed to apply correction: %w", err)
	}

	e.logger.Info("applied correction",
		"transaction_id", tx.ID,
		"category", category.Name,
		"outcome", outcome.Message)
	return outcome, nil
}

func (e *Engine) learnRule(ctx context.Context, tx *model.Transaction, category *model.Category) (model.LearningOutcome, error) {
	keyword := rules.DeriveKeyword(normalize.Description(tx.Description))
	if keyword == "" {
		return model.LearningOutcome{
			Success: true,
			Message: fmt.Sprintf("Categorized as %q; no keyword could be learned from the description", category.Name),
		}, nil
	}

	existing, err := e.store.FindRule(ctx, keyword, model.MatchContains)
	switch {
	case err == nil:
		if existing.CategoryID == category.ID {
			return model.LearningOutcome{
				Success: true,
				Message: fmt.Sprintf("Rule for %q already exists", keyword),
				Rule:    existing,
			}, nil
		}

		existing.CategoryID = category.ID
		existing.CategoryName = category.Name
		existing.TaxMapping = category.TaxMapping
		existing.IsTaxDeductible = category.IsTaxDeductible()
		if err := e.store.UpdateRule(ctx, existing); err != nil {
			return model.LearningOutcome{}, fmt.Errorf("failed to update rule %q: %w", keyword, err)
		}
		return model.LearningOutcome{
			Success: true,
			Message: fmt.Sprintf("Updated rule for %q to use category %q", keyword, category.Name),
			Rule:    existing,
		}, nil

	case errors.Is(err, common.ErrNotFound):
		rule := &model.Rule{
			Keyword:         keyword,
			MatchType:       model.MatchContains,
			CategoryID:      category.ID,
			CategoryName:    category.Name,
			TaxMapping:      category.TaxMapping,
			IsTaxDeductible: category.IsTaxDeductible(),
			Source:          model.SourceAutoLearned,
			LearnedFrom:     tx.ID,
			Description:     fmt.Sprintf("Learned from %q", tx.Description),
		}
		if err := e.store.CreateRule(ctx, rule); err != nil {
			return model.LearningOutcome{}, fmt.Errorf("failed to create rule %q: %w", keyword, err)
		}
		return model.LearningOutcome{
			Success: true,
			Message: fmt.Sprintf("Learned! Future transactions containing %q will be categorized as %q", keyword, category.Name),
			Rule:    rule,
		}, nil

	default:
		return model.LearningOutcome{}, fmt.Errorf("failed to look up rule %q: %w", keyword, err)
	}
}
