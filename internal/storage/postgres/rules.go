package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ruleSelect = `
	SELECT r.id, r.keyword, r.match_type, r.category_id, COALESCE(c.name, ''),
	       r.tax_mapping, r.is_tax_deductible, r.source, r.description,
	       r.learned_from, r.transaction_type, r.priority, r.usage_count,
	       r.created_at, r.updated_at
	FROM rules r
	LEFT JOIN categories c ON c.id = r.category_id`

func scanRule(row pgx.Row) (*model.Rule, error) {
	var r model.Rule
	err := row.Scan(
		&r.ID, &r.Keyword, &r.MatchType, &r.CategoryID, &r.CategoryName,
		&r.TaxMapping, &r.IsTaxDeductible, &r.Source, &r.Description,
		&r.LearnedFrom, &r.TransactionType, &r.Priority, &r.UsageCount,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRules returns every rule ordered by priority, then creation order.
func (s *Store) ListRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.pool.Query(ctx, ruleSelect+`
		ORDER BY r.priority DESC, r.created_at, r.keyword, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// GetRule retrieves a rule by id.
func (s *Store) GetRule(ctx context.Context, id string) (*model.Rule, error) {
	r, err := scanRule(s.pool.QueryRow(ctx, ruleSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "rule", id)
	}
	return r, nil
}

// FindRule looks up a rule by keyword (case-insensitive) and match type.
func (s *Store) FindRule(ctx context.Context, keyword string, matchType model.MatchType) (*model.Rule, error) {
	r, err := scanRule(s.pool.QueryRow(ctx,
		ruleSelect+` WHERE lower(r.keyword) = lower($1) AND r.match_type = $2`, keyword, matchType))
	if err != nil {
		return nil, notFound(err, "rule", fmt.Sprintf("%q", keyword))
	}
	return r, nil
}

// CreateRule inserts a rule, assigning an id when empty.
func (s *Store) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := storage.ValidateRule(rule); err != nil {
		return err
	}

	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.TaxMapping == "" {
		rule.TaxMapping = model.TaxNone
	}
	now := time.Now()
	rule.CreatedAt, rule.UpdatedAt = now, now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rules (
			id, keyword, match_type, category_id, tax_mapping, is_tax_deductible,
			source, description, learned_from, transaction_type, priority,
			usage_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, rule.ID, rule.Keyword, rule.MatchType, rule.CategoryID, rule.TaxMapping,
		rule.IsTaxDeductible, rule.Source, rule.Description, rule.LearnedFrom,
		rule.TransactionType, rule.Priority, rule.UsageCount, rule.CreatedAt, rule.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule %q (%s): %w", rule.Keyword, rule.MatchType, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule rewrites the mutable fields of an existing rule.
func (s *Store) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := storage.ValidateRule(rule); err != nil {
		return err
	}
	if rule.ID == "" {
		return fmt.Errorf("%w: rule.ID", storage.ErrEmptyString)
	}

	rule.UpdatedAt = time.Now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE rules SET
			keyword = $1, match_type = $2, category_id = $3, tax_mapping = $4,
			is_tax_deductible = $5, source = $6, description = $7, learned_from = $8,
			transaction_type = $9, priority = $10, updated_at = $11
		WHERE id = $12
	`, rule.Keyword, rule.MatchType, rule.CategoryID, rule.TaxMapping,
		rule.IsTaxDeductible, rule.Source, rule.Description, rule.LearnedFrom,
		rule.TransactionType, rule.Priority, rule.UpdatedAt, rule.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule %q (%s): %w", rule.Keyword, rule.MatchType, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return requireAffected(tag, "rule", rule.ID)
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireAffected(tag, "rule", id)
}

// IncrementRuleUsage bumps a rule's usage counter.
func (s *Store) IncrementRuleUsage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE rules SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
	}
	return requireAffected(tag, "rule", id)
}
