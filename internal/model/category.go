package model

import "time"

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// TaxMapping names the self-assessment expense box a category reports under.
type TaxMapping string

// Tax mapping constants.
const (
	TaxOfficeCosts       TaxMapping = "office_costs"
	TaxTravelCosts       TaxMapping = "travel_costs"
	TaxClothing          TaxMapping = "clothing"
	TaxStaffCosts        TaxMapping = "staff_costs"
	TaxResellingGoods    TaxMapping = "reselling_goods"
	TaxPremisesCosts     TaxMapping = "premises_costs"
	TaxAdvertising       TaxMapping = "advertising"
	TaxFinancialCharges  TaxMapping = "financial_charges"
	TaxLegalProfessional TaxMapping = "legal_professional"
	TaxNone              TaxMapping = "none"
)

var taxMappings = []TaxMapping{
	TaxOfficeCosts,
	TaxTravelCosts,
	TaxClothing,
	TaxStaffCosts,
	TaxResellingGoods,
	TaxPremisesCosts,
	TaxAdvertising,
	TaxFinancialCharges,
	TaxLegalProfessional,
	TaxNone,
}

// TaxMappings returns the full tax mapping vocabulary in display order.
func TaxMappings() []TaxMapping {
	out := make([]TaxMapping, len(taxMappings))
	copy(out, taxMappings)
	return out
}

// Valid reports whether m is part of the vocabulary.
func (m TaxMapping) Valid() bool {
	for _, known := range taxMappings {
		if m == known {
			return true
		}
	}
	return false
}

// ParseTaxMapping converts s to a TaxMapping. Unknown or empty values map to TaxNone.
func ParseTaxMapping(s string) TaxMapping {
	m := TaxMapping(s)
	if !m.Valid() {
		return TaxNone
	}
	return m
}

// UncategorizedName is the category every unclassifiable transaction falls back to.
const UncategorizedName = "Uncategorized"

// Category represents a spending or income bucket with tax semantics.
type Category struct {
	CreatedAt  time.Time    `json:"created_at"`
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       CategoryType `json:"type"`
	TaxMapping TaxMapping   `json:"tax_mapping"`
}

// IsTaxDeductible reports whether spending in this category can be claimed.
func (c Category) IsTaxDeductible() bool {
	return c.Type == CategoryTypeExpense && c.TaxMapping != TaxNone && c.TaxMapping != ""
}
