package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/google/uuid"
)

const ruleSelect = `
	SELECT r.id, r.keyword, r.match_type, r.category_id, COALESCE(c.name, ''),
	       r.tax_mapping, r.is_tax_deductible, r.source, r.description,
	       r.learned_from, r.transaction_type, r.priority, r.usage_count,
	       r.created_at, r.updated_at
	FROM rules r
	LEFT JOIN categories c ON c.id = r.category_id`

func scanRule(row interface{ Scan(...any) error }) (*model.Rule, error) {
	var (
		r                    model.Rule
		deductible           int
		createdAt, updatedAt sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.Keyword, &r.MatchType, &r.CategoryID, &r.CategoryName,
		&r.TaxMapping, &deductible, &r.Source, &r.Description,
		&r.LearnedFrom, &r.TransactionType, &r.Priority, &r.UsageCount,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.IsTaxDeductible = deductible == 1
	r.CreatedAt = createdAt.Time
	r.UpdatedAt = updatedAt.Time
	return &r, nil
}

// ListRules returns every rule, served from a short-lived cache when warm.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	if rules, ok := s.getCachedRules(); ok {
		return rules, nil
	}

	rows, err := s.db.QueryContext(ctx, ruleSelect+`
		ORDER BY r.priority DESC, r.created_at, r.keyword, r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

	s.cacheRules(rules)
	return cloneRules(rules), nil
}

// GetRule retrieves a rule by id.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	r, err := scanRule(s.db.QueryRowContext(ctx, ruleSelect+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return r, nil
}

// FindRule looks up a rule by keyword (case-insensitive) and match type.
func (s *SQLiteStorage) FindRule(ctx context.Context, keyword string, matchType model.MatchType) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(keyword, "keyword"); err != nil {
		return nil, err
	}

	r, err := scanRule(s.db.QueryRowContext(ctx,
		ruleSelect+` WHERE r.keyword = ? AND r.match_type = ?`, keyword, matchType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %q: %w", keyword, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rule: %w", err)
	}
	return r, nil
}

// CreateRule inserts a rule, assigning an id when empty.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateRule(rule); err != nil {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (
			id, keyword, match_type, category_id, tax_mapping, is_tax_deductible,
			source, description, learned_from, transaction_type, priority,
			usage_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.Keyword, rule.MatchType, rule.CategoryID, rule.TaxMapping,
		boolToInt(rule.IsTaxDeductible), rule.Source, rule.Description, rule.LearnedFrom,
		rule.TransactionType, rule.Priority, rule.UsageCount, rule.CreatedAt, rule.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule %q (%s): %w", rule.Keyword, rule.MatchType, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	s.invalidateRuleCache()
	return nil
}

// UpdateRule rewrites the mutable fields of an existing rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := ValidateRule(rule); err != nil {
		return err
	}
	if err := validateString(rule.ID, "rule.ID"); err != nil {
		return err
	}

	rule.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE rules SET
			keyword = ?, match_type = ?, category_id = ?, tax_mapping = ?,
			is_tax_deductible = ?, source = ?, description = ?, learned_from = ?,
			transaction_type = ?, priority = ?, updated_at = ?
		WHERE id = ?
	`, rule.Keyword, rule.MatchType, rule.CategoryID, rule.TaxMapping,
		boolToInt(rule.IsTaxDeductible), rule.Source, rule.Description, rule.LearnedFrom,
		rule.TransactionType, rule.Priority, rule.UpdatedAt, rule.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("rule %q (%s): %w", rule.Keyword, rule.MatchType, common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if err := requireAffected(result, "rule", rule.ID); err != nil {
		return err
	}

	s.invalidateRuleCache()
	return nil
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	if err := requireAffected(result, "rule", id); err != nil {
		return err
	}

	s.invalidateRuleCache()
	return nil
}

// IncrementRuleUsage bumps a rule's usage counter.
func (s *SQLiteStorage) IncrementRuleUsage(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE rules SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment rule usage: %w", err)
	}
	if err := requireAffected(result, "rule", id); err != nil {
		return err
	}

	s.bumpCachedUsage(id)
	return nil
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, common.ErrNotFound)
	}
	return nil
}

// Rule cache management.

func (s *SQLiteStorage) getCachedRules() ([]model.Rule, bool) {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if s.ruleCache == nil || time.Now().After(s.ruleCacheExpiry) {
		return nil, false
	}
	return cloneRules(s.ruleCache), true
}

func (s *SQLiteStorage) cacheRules(rules []model.Rule) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.ruleCache = cloneRules(rules)
	s.ruleCacheExpiry = time.Now().Add(ruleCacheTTL)
}

func (s *SQLiteStorage) invalidateRuleCache() {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	s.ruleCache = nil
}

func (s *SQLiteStorage) bumpCachedUsage(id string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	for i := range s.ruleCache {
		if s.ruleCache[i].ID == id {
			s.ruleCache[i].UsageCount++
			return
		}
	}
}

func cloneRules(rules []model.Rule) []model.Rule {
	out := make([]model.Rule, len(rules))
	copy(out, rules)
	return out
}
