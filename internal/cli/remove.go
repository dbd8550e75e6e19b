package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagRemoveSource string

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a stored property",
		Long:  "Remove a stored property together with its follow-up state.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}
	cmd.Flags().StringVar(&flagRemoveSource, "source", "", "source flyer, when the ID is in several flyers")
	return cmd
}

func runRemove(cmd *cobra.Command, args []string) error {
	_, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	rec, err := repo.Delete(args[0], flagRemoveSource)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"id":          rec.ID,
			"source_file": rec.SourceFile,
			"removed":     true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s).\n", rec.ID, rec.SourceFile)
	return nil
}
