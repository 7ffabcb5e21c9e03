package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/entity"
	"github.com/spf13/cobra"
)

func (a *app) matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a document to one of an owner's entities",
		Long: `Read extracted document fields (JSON) and decide which registered entity the
document belongs to. With --context, warn when the document looks like it
belongs to a different entity than the one selected.`,
		Example: `  spice match --document invoice.json --owner jo
  spice match --document letter.json --owner jo --context <entity-id> --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			path, _ := cmd.Flags().GetString("document")
			owner, _ := cmd.Flags().GetString("owner")
			contextID, _ := cmd.Flags().GetString("context")
			asJSON, _ := cmd.Flags().GetBool("json")

			data, err := os.ReadFile(path) //nolint:gosec // user-supplied document path
			if err != nil {
				return common.NewUserError("cannot read "+path, err)
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			signals, err := entity.ParseDocument(data)
			if err != nil {
				return common.NewUserError("document is not a JSON object", err)
			}

			result, err := a.newEngine(store, nil).MatchSignals(ctx, owner, signals, contextID)
			if err != nil {
				return fmt.Errorf("failed to match document: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, cli.RenderMatch(result))
			return nil
		},
	}

	cmd.Flags().String("document", "", "JSON file of extracted document fields")
	cmd.Flags().String("owner", "", "owner whose entities are candidates")
	cmd.Flags().String("context", "", "entity currently selected by the user")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
