package llm

import (
	"strings"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{"classifications": [
	{"transaction_id": "t1", "category_name": "Software", "hmrc_mapping": "office_costs",
	 "is_tax_deductible": true, "reasoning": "GitHub subscription", "confidence_score": 0.92},
	{"transaction_id": "t2", "category_name": "Groceries", "hmrc_mapping": "none",
	 "is_tax_deductible": false, "reasoning": "Supermarket", "confidence_score": 0.7}
]}`

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "\n\n```json\n{\"a\":1}\n```\n", `{"a":1}`},
		{"no fence", `  {"a":1} `, `{"a":1}`},
		{"unclosed fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"closing fence only", "{\"a\":1}\n```", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := ParseResponse(validReply)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "t1", got[0].TransactionID)
		assert.Equal(t, model.TaxOfficeCosts, got[0].TaxMapping)
		assert.True(t, got[0].IsTaxDeductible)
		assert.InDelta(t, 0.92, got[0].ConfidenceScore, 1e-9)
	})

	t.Run("fenced", func(t *testing.T) {
		got, err := ParseResponse("```json\n" + validReply + "\n```")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("fence without closing", func(t *testing.T) {
		got, err := ParseResponse("```json\n" + validReply)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("surrounded by prose", func(t *testing.T) {
		got, err := ParseResponse("Here are the results:\n" + validReply + "\nLet me know if you need more.")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("unknown mapping and out of range confidence", func(t *testing.T) {
		got, err := ParseResponse(`{"classifications": [{"transaction_id": "t1", "category_name": " Misc ",
			"hmrc_mapping": "entertaining", "confidence_score": 1.7}]}`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, model.TaxNone, got[0].TaxMapping)
		assert.InDelta(t, 1.0, got[0].ConfidenceScore, 1e-9)
		assert.Equal(t, "Misc", got[0].CategoryName)
	})

	t.Run("empty category name", func(t *testing.T) {
		got, err := ParseResponse(`{"classifications": [{"transaction_id": "t1", "category_name": "", "confidence_score": 0.4}]}`)
		require.NoError(t, err)
		assert.Equal(t, model.UncategorizedName, got[0].CategoryName)
	})

	failures := map[string]string{
		"not json":             "I could not classify these",
		"truncated":            strings.TrimSuffix(validReply, "]}"),
		"missing envelope":     `[{"transaction_id": "t1"}]`,
		"missing required":     `{"classifications": [{"transaction_id": "t1", "category_name": "X"}]}`,
		"wrong id type":        `{"classifications": [{"transaction_id": 17, "category_name": "X", "confidence_score": 1}]}`,
		"confidence as string": `{"classifications": [{"transaction_id": "t1", "category_name": "X", "confidence_score": "high"}]}`,
	}
	for name, body := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResponse(body)
			assert.Error(t, err)
		})
	}
}

func TestSystemPromptListsVocabulary(t *testing.T) {
	prompt := SystemPrompt()
	for _, m := range model.TaxMappings() {
		assert.Contains(t, prompt, string(m))
	}
	assert.Contains(t, prompt, "classifications")
	assert.Contains(t, prompt, "confidence_score")
}

func TestUserPrompt(t *testing.T) {
	body, err := UserPrompt([]model.Transaction{{ID: "t1", Description: "TESCO", Type: model.TransactionDebit}})
	require.NoError(t, err)
	assert.Contains(t, body, `"id":"t1"`)
	assert.Contains(t, body, `"type":"debit"`)
	assert.True(t, strings.HasPrefix(body, "["))
}

func TestUserPromptCleansDescriptionAndEncodesAmount(t *testing.T) {
	body, err := UserPrompt([]model.Transaction{{
		ID:          "1",
		Description: "CARD PAYMENT TO TESCO STORES 1234",
		Amount:      decimal.RequireFromString("-4.50"),
		Type:        model.TransactionDebit,
	}})
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1","description":"TESCO STORES 1234","amount":-4.5,"type":"debit"}]`, body)
}
