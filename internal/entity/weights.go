package entity

import "fmt"

// Weights is the additive contribution of each matching signal.
type Weights struct {
	CompanyNumber     float64 `mapstructure:"company_number"`
	VATNumber         float64 `mapstructure:"vat_number"`
	Reference         float64 `mapstructure:"reference"`
	ExactName         float64 `mapstructure:"exact_name"`
	NameContained     float64 `mapstructure:"name_contained"`
	NameOverlap       float64 `mapstructure:"name_overlap"`
	Postcode          float64 `mapstructure:"postcode"`
	TextName          float64 `mapstructure:"text_name"`
	TextCompanyNumber float64 `mapstructure:"text_company_number"`
	Context           float64 `mapstructure:"context"`
	Default           float64 `mapstructure:"default_entity"`
	// MinNameOverlap is the token overlap ratio below which names don't score.
	MinNameOverlap float64 `mapstructure:"min_name_overlap"`
}

// DefaultWeights returns the stock weight table.
func DefaultWeights() Weights {
	return Weights{
		CompanyNumber:     0.45,
		VATNumber:         0.40,
		Reference:         0.35,
		ExactName:         0.35,
		NameContained:     0.25,
		NameOverlap:       0.20,
		Postcode:          0.15,
		TextName:          0.10,
		TextCompanyNumber: 0.20,
		Context:           0.05,
		Default:           0.02,
		MinNameOverlap:    0.5,
	}
}

// Validate rejects negative weights and an overlap ratio outside (0, 1].
func (w Weights) Validate() error {
	named := map[string]float64{
		"company_number":      w.CompanyNumber,
		"vat_number":          w.VATNumber,
		"reference":           w.Reference,
		"exact_name":          w.ExactName,
		"name_contained":      w.NameContained,
		"name_overlap":        w.NameOverlap,
		"postcode":            w.Postcode,
		"text_name":           w.TextName,
		"text_company_number": w.TextCompanyNumber,
		"context":             w.Context,
		"default_entity":      w.Default,
	}
	for name, v := range named {
		if v < 0 {
			return fmt.Errorf("entity weight %s must not be negative, got %v", name, v)
		}
	}
	if w.MinNameOverlap <= 0 || w.MinNameOverlap > 1 {
		return fmt.Errorf("entity weight min_name_overlap must be in (0, 1], got %v", w.MinNameOverlap)
	}
	return nil
}

// Thresholds are the confidence cut-offs between resolution bands.
type Thresholds struct {
	AutoAssign float64 `mapstructure:"auto_assign_threshold"`
	Confirm    float64 `mapstructure:"confirm_threshold"`
}

// DefaultThresholds returns 0.90 for auto-assign and 0.50 for confirmation.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoAssign: 0.90, Confirm: 0.50}
}

// Validate requires 0 < Confirm <= AutoAssign <= 1.
func (t Thresholds) Validate() error {
	if t.Confirm <= 0 || t.Confirm > t.AutoAssign || t.AutoAssign > 1 {
		return fmt.Errorf("entity thresholds must satisfy 0 < confirm (%v) <= auto_assign (%v) <= 1", t.Confirm, t.AutoAssign)
	}
	return nil
}
