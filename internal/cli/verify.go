package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/flyer"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/verify"
)

func newVerifyCmd() *cobra.Command {
	var (
		ids     []string
		source  string
		pending bool
	)

	cmd := &cobra.Command{
		Use:   "verify [file...]",
		Short: "Check whether properties are still listed",
		Long: "Search every configured platform for each property in the given flyers, " +
			"or for stored properties picked with --id or --pending. The outcome is saved, " +
			"and properties no platform lists are marked for a phone call.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(ids) == 0 && !pending {
				return errors.New("nothing to verify: give flyer files, --id or --pending")
			}
			return runVerify(cmd, args, ids, source, pending)
		},
	}

	cmd.Flags().StringSliceVar(&ids, "id", nil, "stored property ID to verify (repeatable)")
	cmd.Flags().StringVar(&source, "source", "", "source flyer of the --id properties, when an ID is in several flyers")
	cmd.Flags().BoolVar(&pending, "pending", false, "re-verify every property awaiting a phone call")

	return cmd
}

func runVerify(cmd *cobra.Command, files, ids []string, source string, pending bool) error {
	cfg, repo, database, err := newPropertyRepo()
	if err != nil {
		return err
	}
	defer closeDB(database)

	adapters, err := cfg.Adapters()
	if err != nil {
		return err
	}
	if len(adapters) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no platforms configured; every property will need a phone call")
	}

	props, err := collectProperties(cmd, newPropertyService(cfg, repo), repo, files, ids, source, pending)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(props) == 0 {
		if isJSON() {
			return printJSON(out, []*verify.Report{})
		}
		fmt.Fprintln(out, "No properties to verify.")
		return nil
	}

	orch := verify.New(adapters, cfg.VerifyOptions())
	reports := orch.VerifyAll(cmd.Context(), props)
	if err := verify.Store(repo, reports); err != nil {
		return err
	}

	if isJSON() {
		return printJSON(out, reports)
	}

	listed := 0
	for _, r := range reports {
		if r.OverallFound {
			listed++
		}
		if err := printReport(out, r); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "%d checked: %d listed, %d need a phone call\n", len(reports), listed, len(reports)-listed)
	return nil
}

// propertyKey identifies a property across flyers. Generated IDs repeat
// between flyers whose names share a prefix.
type propertyKey struct {
	id, source string
}

// collectProperties gathers the properties to verify from flyers, IDs and
// the pending follow-up list, skipping duplicates.
func collectProperties(cmd *cobra.Command, svc *property.Service, repo *property.Repository, files, ids []string, source string, pending bool) ([]*property.Property, error) {
	var props []*property.Property
	seen := make(map[propertyKey]bool)
	add := func(p *property.Property) {
		k := propertyKey{p.ID, p.SourceFile}
		if seen[k] {
			return
		}
		seen[k] = true
		props = append(props, p)
	}

	for _, path := range files {
		doc, err := flyer.ReadFile(path)
		if err != nil {
			return nil, err
		}
		result, err := svc.Extract(doc)
		if errors.Is(err, flyer.ErrUnreadableDocument) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, p := range result.Properties {
			add(p)
		}
	}

	for _, id := range ids {
		rec, err := repo.Get(id, source)
		if err != nil {
			return nil, err
		}
		p := rec.Property
		add(&p)
	}

	if pending {
		records, err := repo.List(property.ListOptions{FollowUp: property.FollowUpPending})
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			p := rec.Property
			add(&p)
		}
	}

	slog.Debug("collected properties", "count", len(props))
	return props, nil
}
