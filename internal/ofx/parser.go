// Package ofx reads OFX/QFX bank and credit card statements into engine transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/normalize"
	"github.com/aclindsa/ofxgo"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// An SGML opening tag alone on a line with its closing bracket missing.
	unclosedTagPattern = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)

	// Transactions without a FITID get a stable id derived in this namespace.
	idNamespace = uuid.MustParse("6f1c8a7e-3b1f-4d59-9a57-2c7f4f3b9e10")
)

// Parser reads OFX statements.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new OFX parser.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// preprocess fixes formatting problems some banks ship in their exports.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagPattern.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX statement and returns its transactions in file order.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var (
		transactions        []model.Transaction
		bankStmts, ccStmts int
	)

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			transactions = append(transactions, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			transactions = append(transactions, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	p.logger.Info("parsed OFX file",
		"transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []model.Transaction {
	if list == nil {
		return nil
	}

	out := make([]model.Transaction, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		tx := convertTransaction(ofxTx, accountID)
		if tx.Description == "" {
			p.logger.Warn("skipping OFX transaction without description", "fitid", ofxTx.FiTID, "account", accountID)
			continue
		}
		out = append(out, tx)
	}
	return out
}

// convertTransaction maps one OFX entry. OFX amounts are signed, so the
// direction comes from the sign rather than TRNTYPE, which banks fill inconsistently.
func convertTransaction(ofxTx ofxgo.Transaction, accountID string) model.Transaction {
	amount := decimal.NewFromBigRat(&ofxTx.TrnAmt.Rat, 2)
	description := describe(ofxTx)

	id := string(ofxTx.FiTID)
	if id == "" {
		key := fmt.Sprintf("%s|%s|%s|%s", accountID, ofxTx.DtPosted.Format("2006-01-02"), amount.String(), description)
		id = uuid.NewSHA1(idNamespace, []byte(key)).String()
	}

	return model.Transaction{
		ID:          id,
		Date:        ofxTx.DtPosted.Time,
		Description: description,
		Amount:      amount,
		Type:        model.TypeFromAmount(amount),
		AccountID:   accountID,
	}
}

// describe joins the payee or NAME with MEMO, which UK banks use for the
// rest of the narrative.
func describe(tx ofxgo.Transaction) string {
	name := strings.TrimSpace(string(tx.Name))
	if tx.Payee != nil && tx.Payee.Name != "" {
		name = strings.TrimSpace(string(tx.Payee.Name))
	}
	memo := strings.TrimSpace(string(tx.Memo))

	switch {
	case name == "":
		return normalize.Whitespace(memo)
	case memo == "" || strings.Contains(strings.ToUpper(name), strings.ToUpper(memo)):
		return normalize.Whitespace(name)
	default:
		return normalize.Whitespace(name + " " + memo)
	}
}
