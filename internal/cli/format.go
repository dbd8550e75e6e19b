package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/evcraddock/bukkaku/internal/platform"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/verify"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to at most max display columns.
func truncate(s string, max int) string {
	return runewidth.Truncate(s, max, "…")
}

// orDash returns "-" for empty values.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// printTable writes rows under headers with columns padded by display width,
// so full-width text lines up.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	writeRow := func(cells []string) error {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				padded[i] = cell
				continue
			}
			padded[i] = runewidth.FillRight(cell, widths[i])
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
		return err
	}

	if err := writeRow(headers); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	sep := make([]string, len(headers))
	for i, h := range headers {
		sep[i] = strings.Repeat("-", runewidth.StringWidth(h))
	}
	if err := writeRow(sep); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}
	for _, row := range rows {
		if err := writeRow(row); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return nil
}

func propertyRow(p *property.Property) []string {
	return []string{p.ID, truncate(p.Address, 36), orDash(p.Rent.Display), orDash(p.Layout), truncate(orDash(p.StationInfo), 20)}
}

// printExtracted prints freshly extracted properties.
func printExtracted(w io.Writer, result *property.ExtractResult) error {
	if _, err := fmt.Fprintf(w, "%s: %d properties, %d dropped\n", result.Source, len(result.Properties), result.Dropped); err != nil {
		return err
	}
	if len(result.Properties) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(result.Properties))
	for _, p := range result.Properties {
		rows = append(rows, propertyRow(p))
	}
	return printTable(w, []string{"ID", "ADDRESS", "RENT", "LAYOUT", "STATION"}, rows)
}

// printRecordTable prints stored properties with their follow-up state.
func printRecordTable(w io.Writer, records []*property.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No properties found.")
		return err
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		checked := "-"
		if r.LastCheckedAt != nil {
			checked = r.LastCheckedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, append(propertyRow(&r.Property), string(r.FollowUpStatus), checked, truncate(r.SourceFile, 24)))
	}
	return printTable(w, []string{"ID", "ADDRESS", "RENT", "LAYOUT", "STATION", "FOLLOW-UP", "CHECKED", "SOURCE"}, rows)
}

// printRecord prints a single stored property.
func printRecord(w io.Writer, r *property.Record) {
	fmt.Fprintf(w, "Property %s\n", r.ID)
	fmt.Fprintf(w, "  Address:    %s\n", orDash(r.Address))
	fmt.Fprintf(w, "  Rent:       %s\n", orDash(r.Rent.Display))
	fmt.Fprintf(w, "  Layout:     %s\n", orDash(r.Layout))
	if r.Area != "" {
		fmt.Fprintf(w, "  Area:       %s\n", r.Area)
	}
	if r.StationInfo != "" {
		fmt.Fprintf(w, "  Station:    %s\n", r.StationInfo)
	}
	if r.BuildingAge != "" {
		fmt.Fprintf(w, "  Age:        %s\n", r.BuildingAge)
	}
	if r.ManagementFee != "" {
		fmt.Fprintf(w, "  Mgmt fee:   %s\n", r.ManagementFee)
	}
	fmt.Fprintf(w, "  Source:     %s\n", orDash(r.SourceFile))
	fmt.Fprintf(w, "  Follow-up:  %s\n", r.FollowUpStatus)
	if len(r.FoundSites) > 0 {
		fmt.Fprintf(w, "  Listed on:  %s\n", strings.Join(r.FoundSites, ", "))
	}
	if r.LastCheckedAt != nil {
		fmt.Fprintf(w, "  Checked:    %s\n", r.LastCheckedAt.Local().Format("2006-01-02 15:04"))
	}
	if r.FollowUpNotes != "" {
		fmt.Fprintf(w, "\n%s\n", r.FollowUpNotes)
	}
}

// resultState is the one-word outcome of a site check.
func resultState(r platform.Result) string {
	switch {
	case r.Failed():
		return string(r.ErrorKind)
	case r.Found:
		return "found"
	default:
		return "not found"
	}
}

// printReport prints one verification report.
func printReport(w io.Writer, r *verify.Report) error {
	p := r.Property
	fmt.Fprintf(w, "%s  %s  %s  %s\n", p.ID, orDash(p.Address), orDash(p.Rent.Display), orDash(p.Layout))

	if len(r.Results) > 0 {
		rows := make([][]string, 0, len(r.Results))
		for _, res := range r.Results {
			rows = append(rows, []string{
				"  " + res.SiteName,
				resultState(res),
				fmt.Sprintf("%.2f", res.Confidence),
				string(res.AvailabilityStatus),
				truncate(orDash(res.Query), 30),
				res.Notes,
			})
		}
		if err := printTable(w, []string{"  SITE", "RESULT", "CONF", "VACANCY", "QUERY", "NOTES"}, rows); err != nil {
			return err
		}
	}

	if r.OverallFound {
		_, err := fmt.Fprintf(w, "=> listed on %s\n\n", strings.Join(r.FoundSites, ", "))
		return err
	}
	_, err := fmt.Fprintf(w, "=> phone follow-up required\n%s\n\n", r.FollowUpNotes)
	return err
}
