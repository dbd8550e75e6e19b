package cli

import (
	"github.com/spf13/cobra"
)

var flagShowSource string

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show property details",
		Long:  "Show a stored property with its latest verification outcome and follow-up notes.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	cmd.Flags().StringVar(&flagShowSource, "source", "", "source flyer, when the ID is in several flyers")
	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	_, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	rec, err := repo.Get(args[0], flagShowSource)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}
