// Package rules implements the keyword rule memory that runs before any AI call.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Match is the outcome of a rule lookup.
type Match struct {
	RuleID          string
	CategoryID      string
	CategoryName    string
	TaxMapping      model.TaxMapping
	Matched         bool
	IsTaxDeductible bool
}

type compiledRule struct {
	keyword string
	rule    model.Rule
}

// Set is an immutable snapshot of rules, scanned in order. The first rule
// that matches wins.
type Set struct {
	rules []compiledRule
}

// NewSet folds rule keywords once so matching does not repeat the work.
func NewSet(rules []model.Rule) *Set {
	s := &Set{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		kw := normalize.Fold(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		s.rules = append(s.rules, compiledRule{keyword: kw, rule: r})
	}
	return s
}

// Len returns the number of usable rules.
func (s *Set) Len() int {
	return len(s.rules)
}

// Match scans the set against both the original and normalized description.
// A rule restricted to a transaction type is skipped when txType is set and differs.
func (s *Set) Match(original, normalized string, txType model.TransactionType) (model.Rule, bool) {
	orig := normalize.Fold(original)
	norm := normalize.Fold(normalized)

	for _, cr := range s.rules {
		if cr.rule.TransactionType != "" && txType != "" && cr.rule.TransactionType != txType {
			continue
		}
		if matches(cr.rule.MatchType, cr.keyword, norm) || matches(cr.rule.MatchType, cr.keyword, orig) {
			return cr.rule, true
		}
	}
	return model.Rule{}, false
}

func matches(matchType model.MatchType, keyword, text string) bool {
	switch matchType {
	case model.MatchExact:
		return text == keyword
	case model.MatchContains:
		return strings.Contains(text, keyword)
	case model.MatchStartsWith:
		return strings.HasPrefix(text, keyword)
	}
	return false
}

// Matcher looks descriptions up against the rule store.
type Matcher struct {
	store  service.RuleStore
	logger *slog.Logger
}

// NewMatcher creates a matcher backed by store.
func NewMatcher(store service.RuleStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{store: store, logger: logger}
}

// Snapshot loads the current rules into a Set.
func (m *Matcher) Snapshot(ctx context.Context) (*Set, error) {
	rules, err := m.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return NewSet(rules), nil
}

// MatchRule finds the first rule in set matching either description and
// records its use. A rule whose category no longer exists is reported as a
// miss so the transaction can be classified another way.
func (m *Matcher) MatchRule(ctx context.Context, set *Set, original, normalized string, txType model.TransactionType) Match {
	rule, ok := set.Match(original, normalized, txType)
	if !ok {
		return Match{}
	}
	if rule.CategoryName == "" {
		m.logger.Warn("rule points at a missing category", "rule_id", rule.ID, "category_id", rule.CategoryID)
		return Match{}
	}

	m.recordUsage(ctx, rule.ID)
	return matchFromRule(rule)
}

// recordUsage increments a rule's usage counter. Failures are logged and
// never reach the caller.
func (m *Matcher) recordUsage(ctx context.Context, ruleID string) {
	if err := m.store.IncrementRuleUsage(ctx, ruleID); err != nil {
		m.logger.Warn("failed to record rule usage", "rule_id", ruleID, "error", err)
	}
}

// matchFromRule converts a matched rule into a Match.
func matchFromRule(rule model.Rule) Match {
	return Match{
		Matched:         true,
		RuleID:          rule.ID,
		CategoryID:      rule.CategoryID,
		CategoryName:    rule.CategoryName,
		TaxMapping:      rule.TaxMapping,
		IsTaxDeductible: rule.IsTaxDeductible,
	}
}
