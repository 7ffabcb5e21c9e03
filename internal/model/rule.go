package model

import "time"

// MatchType selects how a rule keyword is compared to a description.
type MatchType string

// Match type constants.
const (
	MatchExact      MatchType = "exact"
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "starts_with"
)

// Valid reports whether t is a supported match type.
func (t MatchType) Valid() bool {
	switch t {
	case MatchExact, MatchContains, MatchStartsWith:
		return true
	}
	return false
}

// RuleSource indicates how a rule was created.
type RuleSource string

const (
	// SourceSystem marks rules shipped with the application seeds.
	SourceSystem RuleSource = "system"
	// SourceManual marks rules created directly by a user.
	SourceManual RuleSource = "manual"
	// SourceAutoLearned marks rules derived from a classification correction.
	SourceAutoLearned RuleSource = "auto_learned"
)

// Valid reports whether s is a known rule source.
func (s RuleSource) Valid() bool {
	switch s {
	case SourceSystem, SourceManual, SourceAutoLearned:
		return true
	}
	return false
}

// Rule maps a keyword to a category so matching transactions skip the AI.
type Rule struct {
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`
	Keyword         string          `json:"keyword"`
	MatchType       MatchType       `json:"match_type"`
	CategoryID      string          `json:"category_id"`
	CategoryName    string          `json:"category_name,omitempty"`
	TaxMapping      TaxMapping      `json:"tax_mapping"`
	Source          RuleSource      `json:"source"`
	Description     string          `json:"description,omitempty"`
	LearnedFrom     string          `json:"learned_from,omitempty"` // originating transaction id
	TransactionType TransactionType `json:"transaction_type,omitempty"`
	Priority        int             `json:"priority"`
	UsageCount      int             `json:"usage_count"`
	IsTaxDeductible bool            `json:"is_tax_deductible"`
}

// RuleMetrics summarizes the rule store.
type RuleMetrics struct {
	BySource   map[RuleSource]int `json:"by_source"`
	TopRules   []Rule             `json:"top_rules"`
	TotalRules int                `json:"total_rules"`
	TotalUsage int                `json:"total_usage"`
}
