package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/property"
)

func newListCmd() *cobra.Command {
	var (
		followUp string
		source   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored properties",
		Long:  "List stored properties, optionally filtered by follow-up status or source flyer.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if followUp != "" && !property.ValidFollowUpStatus(followUp) {
				return fmt.Errorf("invalid follow-up status %q (use none, pending or called)", followUp)
			}
			return runList(cmd, property.ListOptions{
				FollowUp: property.FollowUpStatus(followUp),
				Source:   source,
			})
		},
	}

	cmd.Flags().StringVar(&followUp, "follow-up", "", "filter by follow-up status (none|pending|called)")
	cmd.Flags().StringVar(&source, "source", "", "filter by source flyer name")

	return cmd
}

func runList(cmd *cobra.Command, opts property.ListOptions) error {
	_, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	records, err := repo.List(opts)
	if err != nil {
		return err
	}

	if isJSON() {
		if records == nil {
			records = []*property.Record{}
		}
		return printJSON(cmd.OutOrStdout(), records)
	}
	return printRecordTable(cmd.OutOrStdout(), records)
}
