package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
)

var taxMappingHelp = map[model.TaxMapping]string{
	model.TaxOfficeCosts:       "stationery, phone, internet, software, computer equipment",
	model.TaxTravelCosts:       "fuel, parking, train and bus fares, hotels, vehicle running costs",
	model.TaxClothing:          "uniforms and protective clothing",
	model.TaxStaffCosts:        "salaries, subcontractors, employer pension contributions",
	model.TaxResellingGoods:    "stock and raw materials bought for resale",
	model.TaxPremisesCosts:     "rent, business rates, utilities, building insurance",
	model.TaxAdvertising:       "advertising, marketing, website costs",
	model.TaxFinancialCharges:  "bank charges, card fees, loan interest",
	model.TaxLegalProfessional: "accountant, solicitor, professional indemnity insurance",
	model.TaxNone:              "personal spending, income, transfers, anything not claimable",
}

// SystemPrompt describes the task, the tax mapping vocabulary and the expected reply shape.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a UK bookkeeping assistant. Classify each bank transaction into a short, ")
	b.WriteString("human-readable spending or income category and map it to an HMRC self-assessment expense box.\n\n")
	b.WriteString("Allowed hmrc_mapping values:\n")
	for _, m := range model.TaxMappings() {
		fmt.Fprintf(&b, "- %s: %s\n", m, taxMappingHelp[m])
	}
	b.WriteString("\nReply with ONLY a JSON object of this shape, one entry per transaction:\n")
	b.WriteString(`{"classifications": [{"transaction_id": "<id>", "category_name": "<category>", `)
	b.WriteString(`"hmrc_mapping": "<mapping>", "is_tax_deductible": true, "reasoning": "<one sentence>", `)
	b.WriteString(`"confidence_score": 0.0}]}`)
	b.WriteString("\nconfidence_score is between 0 and 1. Credits are usually income and not deductible.")
	return b.String()
}

type promptTransaction struct {
	ID          string                `json:"id"`
	Description string                `json:"description"`
	Amount      json.Number           `json:"amount"`
	Type        model.TransactionType `json:"type"`
}

// UserPrompt encodes a batch as the JSON array sent to the model. Descriptions
// go out cleaned of payment-rail boilerplate and amounts as plain numbers.
func UserPrompt(batch []model.Transaction) (string, error) {
	items := make([]promptTransaction, len(batch))
	for i, txn := range batch {
		description := normalize.Description(txn.Description)
		if description == "" {
			description = strings.TrimSpace(txn.Description)
		}
		items[i] = promptTransaction{
			ID:          txn.ID,
			Description: description,
			Amount:      json.Number(txn.Amount.String()),
			Type:        txn.Type,
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode batch: %w", err)
	}
	return string(data), nil
}
