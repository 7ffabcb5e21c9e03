package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a bank movement.
type TransactionType string

const (
	// TransactionDebit is money leaving the account.
	TransactionDebit TransactionType = "debit"
	// TransactionCredit is money entering the account.
	TransactionCredit TransactionType = "credit"
)

// Valid reports whether t is debit or credit.
func (t TransactionType) Valid() bool {
	return t == TransactionDebit || t == TransactionCredit
}

// Transaction is a bank movement to classify.
type Transaction struct {
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Type        TransactionType `json:"type"`
	AccountID   string          `json:"account_id,omitempty"`

	// Classification state written back by the engine or by a correction.
	CategoryID      string     `json:"category_id,omitempty"`
	TaxMapping      TaxMapping `json:"tax_mapping,omitempty"`
	Confidence      float64    `json:"confidence,omitempty"`
	IsTaxDeductible bool       `json:"is_tax_deductible,omitempty"`
	NeedsReview     bool       `json:"needs_review,omitempty"`
}

// TypeFromAmount infers the direction from the sign of an amount.
func TypeFromAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionDebit
	}
	return TransactionCredit
}
