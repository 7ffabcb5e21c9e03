package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/ofx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify transactions from a statement",
		Long: `Classify every transaction in an OFX/QFX statement or a JSON file.

Learned rules are tried first; anything they miss goes to the AI in batches.
Results below the review threshold are flagged for review.`,
		Example: `  spice classify --file statement.ofx
  spice classify --file transactions.json --save`,
		RunE: a.runClassify,
	}

	cmd.Flags().StringP("file", "f", "", "OFX, QFX or JSON file to classify")
	cmd.Flags().Bool("save", false, "store transactions and their classifications")
	cmd.Flags().Bool("no-ai", false, "use rules only")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	path, _ := cmd.Flags().GetString("file")
	save, _ := cmd.Flags().GetBool("save")
	noAI, _ := cmd.Flags().GetBool("no-ai")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	transactions, err := readTransactions(ctx, path)
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		return common.NewUserError("no transactions found in "+path, common.ErrNoTransactions)
	}
	slog.Info("loaded transactions", "file", path, "count", len(transactions))

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if save {
		if err := store.SaveTransactions(ctx, transactions); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
	}

	var (
		classifier engine.ClassifierPort
		progress   *cli.BatchProgress
	)
	if !noAI {
		var onBatch llm.ProgressFunc
		if !noProgress {
			progress = cli.NewBatchProgress(cmd.ErrOrStderr(), len(transactions))
			onBatch = progress.Update
		}
		if classifier, err = a.newClassifier(onBatch); err != nil {
			return err
		}
	}

	eng := a.newEngine(store, classifier)
	results, err := eng.ClassifyTransactions(ctx, transactions)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if save {
		if err := eng.RecordResults(ctx, results); err != nil {
			return fmt.Errorf("failed to record classifications: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderResults(transactions, results))
	fmt.Fprintln(out, cli.RenderSummary(model.Summarize(results)))
	return nil
}

// readTransactions loads a statement, choosing the reader by file extension.
func readTransactions(ctx context.Context, path string) ([]model.Transaction, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied statement path
	if err != nil {
		return nil, common.NewUserError("cannot open "+path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return ofx.NewParser(slog.Default()).ParseFile(ctx, f)
	case ".json":
		return decodeTransactions(f)
	default:
		return nil, common.NewUserError("unsupported file type "+filepath.Ext(path)+" (want .ofx, .qfx or .json)", common.ErrInvalidInput)
	}
}

// jsonTransaction is the JSON input shape. Dates may be plain YYYY-MM-DD.
type jsonTransaction struct {
	ID          string                `json:"id"`
	Date        string                `json:"date"`
	Description string                `json:"description"`
	Amount      decimal.Decimal       `json:"amount"`
	Type        model.TransactionType `json:"type"`
	AccountID   string                `json:"account_id"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "02/01/2006"}

func decodeTransactions(r io.Reader) ([]model.Transaction, error) {
	var raw []jsonTransaction
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid transaction JSON: %w", common.ErrInvalidInput, err)
	}

	transactions := make([]model.Transaction, 0, len(raw))
	for i, in := range raw {
		tx := model.Transaction{
			ID:          in.ID,
			Description: strings.TrimSpace(in.Description),
			Amount:      in.Amount,
			Type:        in.Type,
			AccountID:   in.AccountID,
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if tx.Type == "" {
			tx.Type = model.TypeFromAmount(in.Amount)
		}
		if in.Date != "" {
			date, err := parseDate(in.Date)
			if err != nil {
				return nil, fmt.Errorf("%w: transaction %d: %w", common.ErrInvalidInput, i, err)
			}
			tx.Date = date
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
