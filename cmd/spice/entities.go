package main

import (
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/spf13/cobra"
)

func (a *app) entitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Manage the businesses and people you keep records for",
	}
	cmd.AddCommand(a.addEntityCmd(), a.listEntitiesCmd())
	return cmd
}

func (a *app) addEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register an entity",
		Example: `  spice entities add "Jo Bloggs" --owner jo --type sole_trader --utr 1234567890 --default
  spice entities add "Bloggs Ltd" --owner jo --type limited_company --company-number 12345678`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			e := model.Entity{Name: args[0]}
			e.OwnerID, _ = flags.GetString("owner")
			entityType, _ := flags.GetString("type")
			e.Type = model.EntityType(entityType)
			e.TradingName, _ = flags.GetString("trading-name")
			e.CompanyNumber, _ = flags.GetString("company-number")
			e.VATNumber, _ = flags.GetString("vat")
			e.UTR, _ = flags.GetString("utr")
			e.PAYEReference, _ = flags.GetString("paye")
			e.NINumber, _ = flags.GetString("ni")
			e.RegisteredAddress, _ = flags.GetString("address")
			e.TradingAddress, _ = flags.GetString("trading-address")
			e.IsDefault, _ = flags.GetBool("default")

			switch e.Type {
			case model.EntityIndividual, model.EntitySoleTrader, model.EntityLimited, model.EntityPartnership:
			default:
				return common.NewUserError(fmt.Sprintf("unknown entity type %q", entityType), common.ErrInvalidInput)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveEntity(ctx, &e); err != nil {
				return fmt.Errorf("failed to save entity: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Registered %s (%s)", e.Name, e.ID)))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("owner", "", "owner the entity belongs to")
	f.String("type", string(model.EntityIndividual), "individual, sole_trader, limited_company or partnership")
	f.String("trading-name", "", "trading name")
	f.String("company-number", "", "Companies House number")
	f.String("vat", "", "VAT registration number")
	f.String("utr", "", "unique taxpayer reference")
	f.String("paye", "", "PAYE reference")
	f.String("ni", "", "National Insurance number")
	f.String("address", "", "registered address")
	f.String("trading-address", "", "trading address")
	f.Bool("default", false, "use as the owner's default entity")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func (a *app) listEntitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			owner, _ := cmd.Flags().GetString("owner")

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entities, err := store.ListEntities(ctx, owner)
			if err != nil {
				return fmt.Errorf("failed to list entities: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderEntities(entities))
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner whose entities to list")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
