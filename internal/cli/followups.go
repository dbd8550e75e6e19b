package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/property"
)

func newFollowUpsCmd() *cobra.Command {
	var notes bool

	cmd := &cobra.Command{
		Use:   "followups",
		Short: "List properties that need a phone call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollowUps(cmd, notes)
		},
	}

	cmd.Flags().BoolVar(&notes, "notes", false, "print the call notes for each property")

	return cmd
}

func runFollowUps(cmd *cobra.Command, notes bool) error {
	_, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	records, err := repo.List(property.ListOptions{FollowUp: property.FollowUpPending})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		if records == nil {
			records = []*property.Record{}
		}
		return printJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No pending follow-ups.")
		return nil
	}

	if !notes {
		return printRecordTable(out, records)
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s\n\n", r.FollowUpNotes)
	}
	return nil
}
