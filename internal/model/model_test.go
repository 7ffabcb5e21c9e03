package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseTaxMapping(t *testing.T) {
	assert.Equal(t, TaxTravelCosts, ParseTaxMapping("travel_costs"))
	assert.Equal(t, TaxNone, ParseTaxMapping("Travel Costs"))
	assert.Equal(t, TaxNone, ParseTaxMapping(""))
	assert.Len(t, TaxMappings(), 10)

	all := TaxMappings()
	all[0] = "mutated"
	assert.Equal(t, TaxOfficeCosts, TaxMappings()[0])
}

func TestCategoryIsTaxDeductible(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		want     bool
	}{
		{"mapped expense", Category{Type: CategoryTypeExpense, TaxMapping: TaxOfficeCosts}, true},
		{"unmapped expense", Category{Type: CategoryTypeExpense, TaxMapping: TaxNone}, false},
		{"empty mapping", Category{Type: CategoryTypeExpense}, false},
		{"income", Category{Type: CategoryTypeIncome, TaxMapping: TaxOfficeCosts}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.category.IsTaxDeductible())
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(map[string]ClassificationResult{
		"a": {Source: SourceRule, ConfidenceScore: 1},
		"b": {Source: SourceAI, ConfidenceScore: 0.9},
		"c": {Source: SourceAI, ConfidenceScore: 0.4, NeedsReview: true},
		"d": {Source: SourceAI, ConfidenceScore: 0, NeedsReview: true},
	})
	assert.Equal(t, ClassificationSummary{Total: 4, RuleHits: 1, AIResults: 3, NeedsReview: 2, Fallbacks: 1}, s)
}

func TestFallbackSuggestion(t *testing.T) {
	s := FallbackSuggestion("t1", "boom")
	assert.Equal(t, UncategorizedName, s.CategoryName)
	assert.Equal(t, TaxNone, s.TaxMapping)
	assert.Zero(t, s.ConfidenceScore)
	assert.False(t, s.IsTaxDeductible)
}

func TestEntityFields(t *testing.T) {
	e := Entity{Name: "Jo Bloggs", UTR: "1234567890", NINumber: "QQ123456C", TradingAddress: "1 High St, Leeds LS1 6DT"}
	assert.Equal(t, []string{"Jo Bloggs"}, e.Names())
	assert.Equal(t, []string{"1234567890", "QQ123456C"}, e.References())
	assert.Equal(t, []string{"1 High St, Leeds LS1 6DT"}, e.Addresses())
}

func TestTypeFromAmount(t *testing.T) {
	assert.Equal(t, TransactionDebit, TypeFromAmount(decimal.NewFromInt(-1)))
	assert.Equal(t, TransactionCredit, TypeFromAmount(decimal.Zero))
	assert.True(t, TransactionDebit.Valid())
	assert.False(t, TransactionType("refund").Valid())
}
