package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/spf13/cobra"
)

func (a *app) learnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "learn TRANSACTION_ID CATEGORY",
		Short: "Correct a transaction and learn a rule from it",
		Long: `Move a stored transaction to CATEGORY (a category name or id) and learn a
keyword rule so similar transactions are categorized the same way next time.`,
		Example: `  spice learn 4f1c... "Software & Subscriptions"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categoryID := args[1]
			if category, err := store.GetCategoryByName(ctx, args[1]); err == nil {
				categoryID = category.ID
			} else if !errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("failed to look up category: %w", err)
			}

			outcome, err := a.newEngine(store, nil).LearnFromCorrection(ctx, args[0], categoryID)
			if err != nil {
				return fmt.Errorf("failed to learn from correction: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderLearning(outcome))
			if !outcome.Success {
				return common.NewUserError(outcome.Message, common.ErrNotFound)
			}
			return nil
		},
	}
}
