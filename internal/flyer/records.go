package flyer

import (
	"strings"

	"golang.org/x/text/width"
)

// minFields is the number of extracted fields a block needs to become a record.
const minFields = 2

// ExtractRecords splits text into property blocks and extracts the fields
// of each. Blocks with fewer than two fields are dropped.
func ExtractRecords(text, source string) []RawRecord {
	folded := width.Fold.String(text)

	var records []RawRecord
	for _, block := range splitBlocks(folded) {
		rec := RawRecord{
			Fields:  extractFields(block),
			Source:  source,
			Excerpt: truncateRunes(strings.TrimSpace(block), maxExcerptRunes),
			Index:   len(records) + 1,
		}
		if rec.Populated() < minFields {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// splitBlocks cuts text at every property-number marker. Text without a
// marker is a single block.
func splitBlocks(text string) []string {
	locs := boundary.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var blocks []string
	start := 0
	for _, loc := range locs {
		if loc[0] > start {
			blocks = append(blocks, text[start:loc[0]])
		}
		start = loc[0]
	}
	blocks = append(blocks, text[start:])

	out := blocks[:0]
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			out = append(out, b)
		}
	}
	return out
}

func extractFields(block string) map[Field]string {
	fields := make(map[Field]string)
	for _, fr := range fieldRules {
		for _, r := range fr.rules {
			if v, ok := r.apply(block); ok {
				fields[fr.field] = truncateRunes(v, fr.maxRunes)
				break
			}
		}
	}
	return fields
}
