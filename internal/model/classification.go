// Package model defines the core domain models used throughout the application.
package model

// ClassificationSource indicates which layer produced a classification.
type ClassificationSource string

// Classification source constants.
const (
	SourceRule ClassificationSource = "rule"
	SourceAI   ClassificationSource = "ai"
)

// ClassificationSuggestion is one AI proposal for a transaction.
type ClassificationSuggestion struct {
	TransactionID   string     `json:"transaction_id"`
	CategoryName    string     `json:"category_name"`
	TaxMapping      TaxMapping `json:"hmrc_mapping"`
	Reasoning       string     `json:"reasoning"`
	ConfidenceScore float64    `json:"confidence_score"`
	IsTaxDeductible bool       `json:"is_tax_deductible"`
}

// FallbackSuggestion is the suggestion used when a transaction could not be classified.
func FallbackSuggestion(transactionID, reasoning string) ClassificationSuggestion {
	return ClassificationSuggestion{
		TransactionID:   transactionID,
		CategoryName:    UncategorizedName,
		TaxMapping:      TaxNone,
		Reasoning:       reasoning,
		ConfidenceScore: 0,
		IsTaxDeductible: false,
	}
}

// ClassificationResult is the decision for one transaction.
type ClassificationResult struct {
	CategoryID      string               `json:"category_id"`
	CategoryName    string               `json:"category_name"`
	TaxMapping      TaxMapping           `json:"tax_mapping"`
	Reasoning       string               `json:"reasoning"`
	Source          ClassificationSource `json:"source"`
	RuleID          string               `json:"rule_id,omitempty"`
	ConfidenceScore float64              `json:"confidence_score"`
	IsTaxDeductible bool                 `json:"is_tax_deductible"`
	NeedsReview     bool                 `json:"needs_review"`
}

// ClassificationSummary counts outcomes of a classification run.
type ClassificationSummary struct {
	Total       int
	RuleHits    int
	AIResults   int
	NeedsReview int
	Fallbacks   int
}

// Summarize tallies a result map.
func Summarize(results map[string]ClassificationResult) ClassificationSummary {
	s := ClassificationSummary{Total: len(results)}
	for _, r := range results {
		switch r.Source {
		case SourceRule:
			s.RuleHits++
		case SourceAI:
			s.AIResults++
			if r.ConfidenceScore == 0 {
				s.Fallbacks++
			}
		}
		if r.NeedsReview {
			s.NeedsReview++
		}
	}
	return s
}

// LearningOutcome reports what a correction did to the rule store.
type LearningOutcome struct {
	Rule    *Rule  `json:"rule,omitempty"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}
