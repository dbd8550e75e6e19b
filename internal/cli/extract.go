package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/flyer"
	"github.com/evcraddock/bukkaku/internal/property"
)

func newExtractCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "extract <file>...",
		Short: "Extract properties from flyers",
		Long: "Read PDF or text flyers, normalize the properties they describe and save them. " +
			"An unreadable flyer is reported and skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the properties without saving them")

	return cmd
}

func runExtract(cmd *cobra.Command, paths []string, dryRun bool) error {
	cfg, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	svc := newPropertyService(cfg, repo)

	var results []*property.ExtractResult
	unreadable := 0
	for _, path := range paths {
		doc, err := flyer.ReadFile(path)
		if err != nil {
			return err
		}

		var result *property.ExtractResult
		if dryRun {
			result, err = svc.Extract(doc)
		} else {
			result, _, err = svc.Import(doc)
		}
		if errors.Is(err, flyer.ErrUnreadableDocument) {
			unreadable++
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			continue
		}
		if err != nil {
			return err
		}
		results = append(results, result)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		if results == nil {
			results = []*property.ExtractResult{}
		}
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if err := printExtracted(out, r); err != nil {
				return err
			}
		}
	}

	if unreadable > 0 {
		return fmt.Errorf("%d of %d flyers unreadable", unreadable, len(paths))
	}
	return nil
}
