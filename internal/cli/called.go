package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/property"
)

var flagCalledSource string

func newCalledCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "called <id>",
		Short: "Mark a follow-up call as done",
		Args:  cobra.ExactArgs(1),
		RunE:  runCalled,
	}
	cmd.Flags().StringVar(&flagCalledSource, "source", "", "source flyer, when the ID is in several flyers")
	return cmd
}

func runCalled(cmd *cobra.Command, args []string) error {
	_, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	rec, err := repo.UpdateFollowUpStatus(args[0], flagCalledSource, property.FollowUpCalled)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Marked %s (%s) as called.\n", rec.ID, rec.SourceFile)
	return nil
}
