package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/spf13/cobra"
)

func (a *app) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage keyword rules",
		Long:  `List, add, delete and seed the keyword rules that classify transactions without the AI.`,
	}

	cmd.AddCommand(
		a.listRulesCmd(),
		a.addRuleCmd(),
		a.deleteRuleCmd(),
		a.seedRulesCmd(),
		a.ruleStatsCmd(),
	)
	return cmd
}

func (a *app) listRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRules(rules))
			return nil
		},
	}
}

func (a *app) addRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add KEYWORD CATEGORY",
		Short: "Add a rule",
		Long: `Add a rule mapping KEYWORD to CATEGORY. The category is created when it
does not exist yet.`,
		Example: `  spice rules add ADOBE "Software & Subscriptions" --tax office_costs
  spice rules add "HMRC VAT" Taxes --match starts_with --type debit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			matchType, _ := cmd.Flags().GetString("match")
			tax, _ := cmd.Flags().GetString("tax")
			txType, _ := cmd.Flags().GetString("type")
			priority, _ := cmd.Flags().GetInt("priority")
			deductible, _ := cmd.Flags().GetBool("deductible")

			rule := model.Rule{
				Keyword:         strings.ToUpper(strings.TrimSpace(args[0])),
				MatchType:       model.MatchType(matchType),
				TaxMapping:      model.TaxMapping(tax),
				TransactionType: model.TransactionType(txType),
				Source:          model.SourceManual,
				Priority:        priority,
				IsTaxDeductible: deductible,
			}
			if !rule.MatchType.Valid() {
				return common.NewUserError("match must be exact, contains or starts_with", common.ErrInvalidInput)
			}
			if !rule.TaxMapping.Valid() {
				return common.NewUserError(fmt.Sprintf("unknown tax mapping %q", tax), common.ErrInvalidInput)
			}
			if rule.TransactionType != "" && !rule.TransactionType.Valid() {
				return common.NewUserError("type must be debit or credit", common.ErrInvalidInput)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			isExpense := rule.TransactionType != model.TransactionCredit
			category, err := engine.NewCategoryResolver(store).ResolveCategory(ctx, args[1], rule.TaxMapping, isExpense)
			if err != nil {
				return fmt.Errorf("failed to resolve category: %w", err)
			}
			rule.CategoryID = category.ID

			err = store.CreateRule(ctx, &rule)
			if errors.Is(err, common.ErrDuplicateEntry) {
				return common.NewUserError(fmt.Sprintf("Rule for %q already exists", rule.Keyword), err)
			}
			if err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(
				fmt.Sprintf("Added rule %s: %q → %s", rule.ID, rule.Keyword, category.Name)))
			return nil
		},
	}

	cmd.Flags().String("match", string(model.MatchContains), "match type (exact, contains, starts_with)")
	cmd.Flags().String("tax", string(model.TaxNone), "tax mapping for matched transactions")
	cmd.Flags().String("type", "", "only match debit or credit transactions")
	cmd.Flags().Int("priority", 0, "higher priority rules are tried first")
	cmd.Flags().Bool("deductible", false, "mark matched transactions as tax deductible")

	return cmd
}

func (a *app) deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete RULE_ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			err = store.DeleteRule(ctx, args[0])
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError("no rule with id "+args[0], err)
			}
			if err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted rule "+args[0]))
			return nil
		},
	}
}

func (a *app) seedRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the built-in rules",
		Long:  `Install the built-in system rules. Running it again only refreshes system rules.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := a.newEngine(store, nil).SeedRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to seed rules: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Seeded rules: %d created, %d refreshed, %d skipped",
				report.Created, report.Refreshed, report.Skipped)))
			return nil
		},
	}
}

func (a *app) ruleStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show rule usage statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			top, _ := cmd.Flags().GetInt("top")

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			metrics, err := a.newEngine(store, nil).RuleMetrics(ctx, top)
			if err != nil {
				return fmt.Errorf("failed to compute rule metrics: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderMetrics(metrics))
			return nil
		},
	}

	cmd.Flags().Int("top", engine.DefaultTopRules, "number of most used rules to show")
	return cmd
}
