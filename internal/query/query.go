// Package query derives platform search keywords from a property.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/evcraddock/bukkaku/internal/property"
)

// Kind names the semantic classes a keyword group is built from.
type Kind string

const (
	LocalityRent   Kind = "locality_rent"
	StationLayout  Kind = "station_layout"
	LocalityLayout Kind = "locality_layout"
)

// SearchQuery is one keyword group submitted to a platform's search form.
type SearchQuery struct {
	Kind   Kind     `json:"kind"`
	Tokens []string `json:"tokens"`
}

// Keywords joins the tokens the way they are typed into a search box.
func (q SearchQuery) Keywords() string {
	return strings.Join(q.Tokens, " ")
}

func (q SearchQuery) String() string {
	return fmt.Sprintf("%s(%s)", q.Kind, q.Keywords())
}

var (
	cityPattern    = regexp.MustCompile(`^(?:東京都|北海道|(?:京都|大阪)府|[^\s0-9]{2,3}県)?[^\s0-9]+?[市区郡](?:[^\s0-9]{1,4}?区)?`)
	townPattern    = regexp.MustCompile(`^[^\s0-9-]+`)
	stationPattern = regexp.MustCompile(`[^\s線「」()]+駅`)
)

// maxTownRunes keeps building names that follow an unnumbered address out of
// the town token.
const maxTownRunes = 12

// Build returns the keyword groups for p in the order platforms should try
// them. Groups without tokens are omitted and identical groups appear once.
func Build(p *property.Property) []SearchQuery {
	locality := LocalityTokens(p.Address)
	rent := RentToken(p.Rent.Yen)
	station := StationToken(p.StationInfo)
	layout := p.Layout

	candidates := []SearchQuery{
		{Kind: LocalityRent, Tokens: compact(locality, rent)},
		{Kind: StationLayout, Tokens: compact(nil, station, layout)},
		{Kind: LocalityLayout, Tokens: compact(locality, layout)},
	}

	seen := make(map[string]bool)
	var out []SearchQuery
	for _, q := range candidates {
		if len(q.Tokens) == 0 {
			continue
		}
		kw := q.Keywords()
		if seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, q)
	}
	return out
}

// LocalityTokens splits a normalized address into its city or ward
// ("東京都渋谷区") and town name ("神南").
func LocalityTokens(address string) []string {
	addr := strings.ReplaceAll(address, " ", "")
	if addr == "" {
		return nil
	}

	var tokens []string
	rest := addr
	if city := cityPattern.FindString(addr); city != "" {
		tokens = append(tokens, city)
		rest = addr[len(city):]
	}
	if town := townPattern.FindString(rest); town != "" && len([]rune(town)) <= maxTownRunes {
		tokens = append(tokens, town)
	}
	return tokens
}

// RentToken renders a rent the way listing sites print it: "15万円",
// "12.5万円", or plain yen when it is not a whole thousand.
func RentToken(yen int64) string {
	switch {
	case yen <= 0:
		return ""
	case yen%1000 == 0:
		return strconv.FormatFloat(float64(yen)/10000, 'f', -1, 64) + "万円"
	default:
		return strconv.FormatInt(yen, 10) + "円"
	}
}

// StationToken returns the first station name in the text, including 駅.
func StationToken(stationInfo string) string {
	return stationPattern.FindString(stationInfo)
}

// compact copies the non-empty tokens of both lists into a new slice.
func compact(head []string, tail ...string) []string {
	out := make([]string, 0, len(head)+len(tail))
	for _, list := range [][]string{head, tail} {
		for _, t := range list {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
